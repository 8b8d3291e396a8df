package auth_test

import (
	"context"
	"fmt"

	"github.com/jonwraymond/toolgate/auth"
	"github.com/jonwraymond/toolgate/kv"
	"github.com/jonwraymond/toolgate/policy"
)

func ExamplePermissionResolver_IsAllowed() {
	ctx := context.Background()
	store := policy.NewKVStore(kv.NewMemory())
	_ = store.Put(ctx, policy.TenantDefaultKey("t1"), &policy.Policy{Tools: []string{"read_*"}})
	_ = store.Put(ctx, policy.UserKey("t1", "u1"), &policy.Policy{Tools: []string{"finance_*"}})

	r := auth.NewPermissionResolver(store)
	for _, call := range []struct{ user, tool string }{
		{"u1", "finance_quote"},
		{"u1", "read_file"},
		{"u2", "read_file"},
	} {
		ok, err := r.IsAllowed(ctx, call.user, "t1", call.tool)
		fmt.Println(call.user, call.tool, ok, err)
	}
	// Output:
	// u1 finance_quote true <nil>
	// u1 read_file false <nil>
	// u2 read_file true <nil>
}
