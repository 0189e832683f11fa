package page_test

import (
	"fmt"

	"github.com/jonwraymond/pageops/page"
)

func ExampleParse() {
	addr, _ := page.Parse("root/doc:42@3")
	fmt.Println(addr.Root, addr.Type, addr.ID, addr.Version)

	unversioned, _ := page.Parse("root/doc:42")
	fmt.Println(unversioned.Version == page.DefaultVersion)
	// Output:
	// root doc 42 3
	// true
}

func ExampleAddress_String() {
	addr, _ := page.New("root", "doc", "42", 3)
	fmt.Println(addr)

	// The default version renders without a suffix.
	fmt.Println(addr.WithVersion(page.DefaultVersion))
	// Output:
	// root/doc:42@3
	// root/doc:42
}
