package cms

import "fmt"

// GuestID is the id of the built-in guest user, the default acting user.
const GuestID int64 = 40

// User is an acting user. UserName at time of change is what the audit
// log records, so the display name lives here.
type User struct {
	ID   int64
	Name string
}

// Users is the user registry. A guest user exists from bootstrap and is
// the current user until SetCurrent says otherwise.
type Users struct {
	byName  map[string]*User
	current *User
	nextID  int64
}

func newUsers() *Users {
	guest := &User{ID: GuestID, Name: "guest"}
	return &Users{
		byName:  map[string]*User{"guest": guest},
		current: guest,
		nextID:  GuestID + 1,
	}
}

// Add registers a new user.
func (u *Users) Add(name string) (*User, error) {
	if name == "" {
		return nil, fmt.Errorf("user name must not be empty")
	}
	if _, exists := u.byName[name]; exists {
		return nil, fmt.Errorf("user %q already exists", name)
	}
	user := &User{ID: u.nextID, Name: name}
	u.nextID++
	u.byName[name] = user
	return user, nil
}

// Get returns a user by name.
func (u *Users) Get(name string) (*User, error) {
	user, ok := u.byName[name]
	if !ok {
		return nil, fmt.Errorf("unknown user %q", name)
	}
	return user, nil
}

// Guest returns the built-in guest user.
func (u *Users) Guest() *User { return u.byName["guest"] }

// Current returns the acting user.
func (u *Users) Current() *User { return u.current }

// SetCurrent changes the acting user.
func (u *Users) SetCurrent(user *User) { u.current = user }
