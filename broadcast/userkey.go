package broadcast

import "strconv"

// AllUsers is the raw user-id sentinel meaning "every user". Raw ids below
// it are invalid.
const AllUsers = -1

// UserKey is a resolved registry key: either one concrete user id or the
// all-users scope. The tag keeps the sentinel out of the integer range, so
// registry code matches on the kind instead of comparing magic values.
type UserKey struct {
	id  int
	all bool
}

// AllUsersKey returns the key covering every user.
func AllUsersKey() UserKey {
	return UserKey{all: true}
}

// UserKeyFor resolves a raw user id to a registry key. ok is false when the
// id is invalid (below AllUsers); callers decide whether that is an error or
// a silent drop.
func UserKeyFor(user int) (UserKey, bool) {
	if user == AllUsers {
		return AllUsersKey(), true
	}
	if user < AllUsers {
		return UserKey{}, false
	}
	return UserKey{id: user}, true
}

// All reports whether the key is the all-users scope.
func (k UserKey) All() bool {
	return k.all
}

// UserID returns the raw user id the key stands for, AllUsers for the
// all-users key.
func (k UserKey) UserID() int {
	if k.all {
		return AllUsers
	}
	return k.id
}

func (k UserKey) String() string {
	if k.all {
		return "all"
	}
	return strconv.Itoa(k.id)
}

// less orders keys for dump output: all-users first, then ascending ids.
func (k UserKey) less(o UserKey) bool {
	if k.all != o.all {
		return k.all
	}
	return k.id < o.id
}
