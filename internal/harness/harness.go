// Package harness executes conformance scenarios against the revision
// module: it bootstraps a fresh platform and in-memory store per run,
// replays the scenario's content mutations on a deterministic clock, and
// checkpoints the persisted audit log against the oracle's prediction.
package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mkoski/fieldtrail/internal/cms"
	"github.com/mkoski/fieldtrail/internal/oracle"
	"github.com/mkoski/fieldtrail/internal/revision"
	"github.com/mkoski/fieldtrail/internal/store"
	"github.com/mkoski/fieldtrail/internal/testutil"
)

// Runner executes scenarios. The zero value is not usable; construct
// with NewRunner.
type Runner struct {
	tokens TokenGenerator
	logger *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithTokenGenerator replaces the UUIDv7 run token generator.
func WithTokenGenerator(g TokenGenerator) RunnerOption {
	return func(r *Runner) { r.tokens = g }
}

// WithLogger installs a logger on the runner and the platforms it boots.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

// NewRunner returns a Runner with UUIDv7 tokens and a discard logger.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		tokens: UUIDv7Generator{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one scenario with a default Runner.
func Run(ctx context.Context, s *Scenario) (*Result, error) {
	return NewRunner().Run(ctx, s)
}

// driver holds the mutable state of one scenario execution: the booted
// platform, the oracle log, and the handle table mapping scenario-local
// page names to live pages.
type driver struct {
	scenario *Scenario
	platform *cms.Platform
	store    *store.Store
	module   *revision.Module
	clock    *testutil.DeterministicClock
	log      *oracle.Log

	// pages holds live handles; pageIDs remembers every handle ever
	// created so placeholder resolution survives page deletion.
	pages   map[string]*cms.Page
	pageIDs map[string]int64
}

// Run executes the scenario. Assertion failures (verify or snapshot
// checkpoints) stop the run and are reported in the Result; setup and
// execution errors are returned as an error with a nil Result.
func (r *Runner) Run(ctx context.Context, s *Scenario) (*Result, error) {
	d, err := r.boot(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
	}
	defer d.store.Close()

	token := s.RunToken
	if token == "" {
		token = r.tokens.Generate()
	}
	result := &Result{Scenario: s.Name, RunToken: token, Pass: true}

	r.logger.Info("scenario started", "scenario", s.Name, "run", token, "steps", len(s.Steps))

	for i, step := range s.Steps {
		detail, failure, err := d.exec(ctx, &step)
		if err != nil {
			return nil, fmt.Errorf("scenario %q steps[%d] (%s): %w", s.Name, i, step.Op, err)
		}

		trace := StepTrace{
			Seq:    i,
			Op:     step.Op,
			Page:   step.Page,
			Detail: detail,
			Expect: len(step.Expect),
			Status: StatusOK,
		}
		if failure != "" {
			trace.Status = StatusFail
			result.Pass = false
			result.Failures = append(result.Failures,
				fmt.Sprintf("steps[%d] (%s): %s", i, step.Op, failure))
		}
		result.Steps = append(result.Steps, trace)

		// A failed checkpoint poisons everything downstream.
		if failure != "" {
			break
		}
	}

	rows, err := d.store.ReadRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
	}
	result.AuditRows = len(rows)

	r.logger.Info("scenario finished", "scenario", s.Name, "run", token,
		"pass", result.Pass, "audit_rows", result.AuditRows)
	return result, nil
}

// boot builds the platform the scenario declares and installs the
// configured revision module on a fresh in-memory store.
func (r *Runner) boot(ctx context.Context, s *Scenario) (*driver, error) {
	clock := testutil.NewDeterministicClock()
	platform := cms.Bootstrap(cms.WithClock(clock), cms.WithLogger(r.logger))

	for _, name := range s.Setup.Fields {
		if _, err := platform.Fields().Add(name); err != nil {
			return nil, fmt.Errorf("setup: %w", err)
		}
	}
	for _, tpl := range s.Setup.Templates {
		if _, err := platform.Templates().Add(tpl.Name, tpl.Fields...); err != nil {
			return nil, fmt.Errorf("setup: %w", err)
		}
	}
	for _, name := range s.Setup.Users {
		if _, err := platform.Users().Add(name); err != nil {
			return nil, fmt.Errorf("setup: %w", err)
		}
	}
	for _, tag := range s.Config.Languages {
		if _, err := platform.Languages().Add(tag); err != nil {
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("setup: %w", err)
	}

	module := revision.New(platform, st)
	if err := platform.Modules().Register(module); err != nil {
		st.Close()
		return nil, fmt.Errorf("setup: %w", err)
	}
	if err := platform.Modules().Install(ctx, revision.ModuleName); err != nil {
		st.Close()
		return nil, fmt.Errorf("setup: %w", err)
	}
	if err := platform.Modules().SaveConfig(ctx, revision.ModuleName, cms.ModuleConfig{
		Templates: s.Config.Templates,
		Fields:    s.Config.Fields,
	}); err != nil {
		st.Close()
		return nil, fmt.Errorf("setup: %w", err)
	}

	return &driver{
		scenario: s,
		platform: platform,
		store:    st,
		module:   module,
		clock:    clock,
		log:      oracle.NewLog(),
		pages:    make(map[string]*cms.Page),
		pageIDs:  make(map[string]int64),
	}, nil
}

// exec runs one step. The returned failure string is non-empty for
// assertion failures (checkpoint mismatches); err is reserved for
// execution errors that make the rest of the scenario meaningless.
func (d *driver) exec(ctx context.Context, step *Step) (detail, failure string, err error) {
	switch step.Op {
	case OpCreate:
		detail, err = d.execCreate(ctx, step)
	case OpEdit:
		detail, err = d.execEdit(ctx, step)
	case OpPublish:
		err = d.execStatus(ctx, step, false)
	case OpUnpublish:
		err = d.execStatus(ctx, step, true)
	case OpMove:
		err = d.execMove(ctx, step)
	case OpTrash:
		err = d.withPage(step, func(p *cms.Page) error {
			return d.platform.Pages().TrashPage(ctx, p)
		})
	case OpRestore:
		err = d.withPage(step, func(p *cms.Page) error {
			return d.platform.Pages().RestorePage(ctx, p)
		})
	case OpDelete:
		err = d.execDelete(ctx, step)
	case OpAdvance:
		detail, err = d.execAdvance(step)
	case OpVerify:
		detail, failure, err = d.execVerify(ctx)
	case OpSnapshot:
		detail, failure, err = d.execSnapshot(ctx, step)
	case OpPrune:
		detail, err = d.execPrune(ctx, step)
	case OpUser:
		detail, err = d.execUser(step)
	default:
		err = fmt.Errorf("unknown op %q", step.Op)
	}
	if err != nil || failure != "" {
		return detail, failure, err
	}

	for _, row := range step.Expect {
		d.log.Record(oracle.Row{
			Subject:  row.Subject,
			Field:    row.Field,
			User:     row.User,
			UserName: row.Username,
			Property: row.Property,
			Value:    row.Value,
		})
	}
	return detail, "", nil
}

func (d *driver) page(handle string) (*cms.Page, error) {
	p, ok := d.pages[handle]
	if !ok {
		return nil, fmt.Errorf("unknown page handle %q", handle)
	}
	return p, nil
}

func (d *driver) withPage(step *Step, fn func(*cms.Page) error) error {
	p, err := d.page(step.Page)
	if err != nil {
		return err
	}
	return fn(p)
}

func (d *driver) execCreate(ctx context.Context, step *Step) (string, error) {
	var parent *cms.Page
	if step.Parent != "" {
		var err error
		if parent, err = d.page(step.Parent); err != nil {
			return "", err
		}
	}
	p, err := d.platform.Pages().Create(step.Page, step.Template, parent)
	if err != nil {
		return "", err
	}
	d.pages[step.Page] = p
	d.pageIDs[step.Page] = p.ID

	if err := d.applyFields(p, step); err != nil {
		return "", err
	}
	if err := d.platform.Pages().Save(ctx, p); err != nil {
		return "", err
	}
	return "template=" + step.Template, nil
}

func (d *driver) execEdit(ctx context.Context, step *Step) (string, error) {
	p, err := d.page(step.Page)
	if err != nil {
		return "", err
	}
	if err := d.applyFields(p, step); err != nil {
		return "", err
	}
	if err := d.platform.Pages().Save(ctx, p); err != nil {
		return "", err
	}
	return "fields=" + strings.Join(editedFields(step), ","), nil
}

// applyFields sets the step's default values and language variants on
// the page. Application order is deterministic so expected-row order is
// writable by hand: fields sorted by name, defaults before variants,
// variants per field in language installation order.
func (d *driver) applyFields(p *cms.Page, step *Step) error {
	for _, name := range sortedKeys(step.Fields) {
		if err := p.SetField(name, step.Fields[name]); err != nil {
			return err
		}
	}
	for _, name := range sortedKeys(step.Variants) {
		byTag := step.Variants[name]
		for _, tag := range d.scenario.Config.Languages {
			value, ok := byTag[tag]
			if !ok {
				continue
			}
			lang, err := d.platform.Languages().Get(tag)
			if err != nil {
				return err
			}
			if err := p.SetFieldVariant(name, lang, value); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *driver) execStatus(ctx context.Context, step *Step, unpublish bool) error {
	return d.withPage(step, func(p *cms.Page) error {
		if unpublish {
			p.AddStatus(cms.StatusUnpublished)
		} else {
			p.RemoveStatus(cms.StatusUnpublished)
		}
		return d.platform.Pages().Save(ctx, p)
	})
}

func (d *driver) execMove(ctx context.Context, step *Step) error {
	p, err := d.page(step.Page)
	if err != nil {
		return err
	}
	parent, err := d.page(step.Parent)
	if err != nil {
		return err
	}
	if err := p.MoveTo(parent); err != nil {
		return err
	}
	return d.platform.Pages().Save(ctx, p)
}

// execDelete removes the page and, mirroring the store's cascade, drops
// every predicted row whose subject lives in the deleted subtree.
func (d *driver) execDelete(ctx context.Context, step *Step) error {
	p, err := d.page(step.Page)
	if err != nil {
		return err
	}

	doomed := map[string]bool{strconv.FormatInt(p.ID, 10): true}
	queue := d.platform.Pages().Children(p)
	for len(queue) > 0 {
		child := queue[0]
		queue = queue[1:]
		doomed[strconv.FormatInt(child.ID, 10)] = true
		queue = append(queue, d.platform.Pages().Children(child)...)
	}

	if err := d.platform.Pages().Delete(ctx, p); err != nil {
		return err
	}
	delete(d.pages, step.Page)

	res := d.resolver()
	kept := make([]oracle.Row, 0, d.log.Len())
	for _, row := range d.log.Rows() {
		if !doomed[res.Resolve(row.Subject)] {
			kept = append(kept, row)
		}
	}
	d.log.Reset()
	for _, row := range kept {
		d.log.Record(row)
	}
	return nil
}

func (d *driver) execAdvance(step *Step) (string, error) {
	by, err := time.ParseDuration(step.By)
	if err != nil {
		return "", fmt.Errorf("invalid duration %q: %w", step.By, err)
	}
	d.clock.Advance(by)
	return "by=" + step.By, nil
}

// execVerify is the checkpoint: read back the persisted audit log and
// compare it against the oracle's prediction, position for position.
func (d *driver) execVerify(ctx context.Context) (string, string, error) {
	rows, err := d.store.ReadRows(ctx)
	if err != nil {
		return "", "", err
	}

	actual := make([]oracle.Row, len(rows))
	for i, r := range rows {
		actual[i] = oracle.Row{
			Subject:  strconv.FormatInt(r.PageID, 10),
			Field:    strconv.FormatInt(r.FieldID, 10),
			User:     strconv.FormatInt(r.UserID, 10),
			UserName: r.UserName,
			Property: r.Property,
			Value:    r.Value,
		}
	}

	detail := fmt.Sprintf("rows=%d", len(actual))
	if err := d.log.Verify(actual, d.resolver()); err != nil {
		return detail, err.Error(), nil
	}
	return detail, "", nil
}

func (d *driver) execSnapshot(ctx context.Context, step *Step) (string, string, error) {
	p, err := d.page(step.Page)
	if err != nil {
		return "", "", err
	}
	snap, err := d.module.SnapshotAt(ctx, p, step.At)
	if err != nil {
		return "", "", err
	}

	var diffs []string
	for _, name := range sortedKeys(step.Fields) {
		want := step.Fields[name]
		if got := snap[name].Default; got != want {
			diffs = append(diffs, fmt.Sprintf("%s: got %q, want %q", name, got, want))
		}
	}
	for _, name := range sortedKeys(step.Variants) {
		for _, tag := range d.scenario.Config.Languages {
			want, ok := step.Variants[name][tag]
			if !ok {
				continue
			}
			lang, err := d.platform.Languages().Get(tag)
			if err != nil {
				return "", "", err
			}
			if got := snap[name].Variants[lang.ID]; got != want {
				diffs = append(diffs, fmt.Sprintf("%s[%s]: got %q, want %q", name, tag, got, want))
			}
		}
	}

	detail := "at=" + step.At
	if len(diffs) > 0 {
		return detail, "snapshot mismatch: " + strings.Join(diffs, "; "), nil
	}
	return detail, "", nil
}

func (d *driver) execPrune(ctx context.Context, step *Step) (string, error) {
	var parts []string
	if step.Retain != "" {
		retain, err := time.ParseDuration(step.Retain)
		if err != nil {
			return "", fmt.Errorf("invalid retention %q: %w", step.Retain, err)
		}
		n, err := d.module.Prune(ctx, retain)
		if err != nil {
			return "", err
		}
		parts = append(parts, fmt.Sprintf("retain=%s pruned=%d", step.Retain, n))
	}
	if step.Depth != nil {
		n, err := d.module.PruneToDepth(ctx, *step.Depth)
		if err != nil {
			return "", err
		}
		parts = append(parts, fmt.Sprintf("depth=%d pruned=%d", *step.Depth, n))
	}
	return strings.Join(parts, " "), nil
}

func (d *driver) execUser(step *Step) (string, error) {
	user, err := d.platform.Users().Get(step.User)
	if err != nil {
		return "", err
	}
	d.platform.Users().SetCurrent(user)
	return "user=" + step.User, nil
}

// resolver maps the scenario's placeholder vocabulary to live ids:
// page handles, field names, user names, and language tags.
func (d *driver) resolver() oracle.Resolver {
	res := oracle.Resolver{}
	for handle, id := range d.pageIDs {
		res["page:"+handle] = strconv.FormatInt(id, 10)
	}
	for _, name := range d.scenario.Setup.Fields {
		if f, err := d.platform.Fields().Get(name); err == nil {
			res["field:"+name] = strconv.FormatInt(f.ID, 10)
		}
	}
	res["user:guest"] = strconv.FormatInt(cms.GuestID, 10)
	for _, name := range d.scenario.Setup.Users {
		if u, err := d.platform.Users().Get(name); err == nil {
			res["user:"+name] = strconv.FormatInt(u.ID, 10)
		}
	}
	for _, tag := range d.scenario.Config.Languages {
		if lang, err := d.platform.Languages().Get(tag); err == nil {
			res["lang:"+tag] = strconv.FormatInt(lang.ID, 10)
		}
	}
	return res
}

func editedFields(step *Step) []string {
	seen := make(map[string]bool)
	for name := range step.Fields {
		seen[name] = true
	}
	for name := range step.Variants {
		seen[name] = true
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
