package cli

import (
	"errors"
	"fmt"
)

var errNotLoggedIn = errors.New("not logged in: log in to Asana in the browser (bugshot login) or set BUGSHOT_ASANA_TOKEN")

type badArgError struct {
	arg string
	msg string
}

func (e badArgError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.arg, e.msg)
}

func errBadArg(arg, msg string) error {
	return badArgError{arg: arg, msg: msg}
}
