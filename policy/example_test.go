package policy_test

import (
	"fmt"

	"github.com/jonwraymond/toolgate/policy"
)

func ExampleMatch() {
	fmt.Println(policy.Match("finance_*", "finance_quote"))
	fmt.Println(policy.Match("finance_*", "financequote"))
	fmt.Println(policy.Match("finance_*", "finance_"))
	// Output:
	// true
	// false
	// true
}

func ExampleParse() {
	p, err := policy.Parse([]byte(`{"tools": ["read_*"], "rate_limits": {"read_secret": 1, "default": 20}}`))
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Println(p.Allows("read_file"), p.Allows("write_file"))
	limit, _ := p.LimitFor("read_secret")
	fmt.Println(limit)
	limit, _ = p.LimitFor("read_file")
	fmt.Println(limit)
	// Output:
	// true false
	// 1
	// 20
}
