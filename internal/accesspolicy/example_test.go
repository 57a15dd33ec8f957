package accesspolicy

import (
	"fmt"

	"github.com/patric-chuzhbe/linknest/internal/auth"
)

func ExampleCanMutateLink() {
	owner := auth.Identity{Username: "alice"}
	admin := auth.Identity{Username: "root", IsAdmin: true}

	fmt.Println(CanMutateLink(owner, "alice"))
	fmt.Println(CanMutateLink(admin, "alice"))

	// Output:
	// true
	// false
}

func ExampleCanReadLink() {
	anonymous := auth.Identity{}

	fmt.Println(CanReadLink(anonymous, "alice", true))
	fmt.Println(CanReadLink(anonymous, "alice", false))

	// Output:
	// true
	// false
}
