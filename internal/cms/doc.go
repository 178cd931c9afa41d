// Package cms is an in-process content platform: pages carrying text
// fields, templates, users, languages, status flags and a hook bus fired
// on save/delete/move.
//
// It exists so the revision harness can run hermetically. The surface is
// deliberately the fixed contract the harness consumes - bootstrap with
// named service accessors, module lifecycle, content CRUD persisted via an
// explicit Save - and nothing more.
package cms
