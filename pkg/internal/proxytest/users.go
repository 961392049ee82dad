package proxytest

// Users authenticates proxy clients by local user/password pairs.
type Users struct {
	kvs map[string]string
}

func NewUsers(kvs map[string]string) *Users {
	if kvs == nil {
		kvs = make(map[string]string)
	}
	return &Users{
		kvs: kvs,
	}
}

// Authenticate checks the validity of the provided user-password pair.
// An empty set accepts everybody.
func (u *Users) Authenticate(user, password string) bool {
	if u == nil || len(u.kvs) == 0 {
		return true
	}

	v, ok := u.kvs[user]
	return ok && password == v
}

// Password returns the password of user for digest verification.
func (u *Users) Password(user string) (string, bool) {
	if u == nil {
		return "", false
	}
	v, ok := u.kvs[user]
	return v, ok
}

func (u *Users) Add(user, password string) {
	u.kvs[user] = password
}

// Empty reports whether the proxy is open.
func (u *Users) Empty() bool {
	return u == nil || len(u.kvs) == 0
}
