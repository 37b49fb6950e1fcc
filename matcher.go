package permit

import "github.com/xraph/permit/permission"

// granted reports whether code is held. Owners hold every code; for
// everyone else codes compare exactly, so a fetched "*" record is just
// another code.
func granted(isOwner bool, perms permission.Set, code string) bool {
	if isOwner {
		return true
	}
	return perms.Has(code)
}

// evaluate applies mode to codes and returns the decision plus the codes
// that are not held. Owners short-circuit before any code is inspected.
func evaluate(isOwner bool, perms permission.Set, mode CheckMode, codes []string) (bool, []string) {
	if isOwner {
		return true, nil
	}
	missing := perms.Missing(codes...)
	if mode == CheckAll {
		return len(missing) == 0, missing
	}
	return len(missing) < len(codes), missing
}
