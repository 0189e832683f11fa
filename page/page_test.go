package page

import (
	"testing"
)

type docPage struct {
	Base
	Title string `json:"title"`
}

func TestData_RendersAddressAsString(t *testing.T) {
	addr, _ := Parse("root/doc:42@1")
	p := docPage{Base: NewBase(addr), Title: "Document 42"}

	attrs, err := Data(p)
	if err != nil {
		t.Fatalf("Data() error = %v", err)
	}
	if attrs["uri"] != "root/doc:42@1" {
		t.Errorf("uri attribute = %v, want canonical string", attrs["uri"])
	}
	if attrs["title"] != "Document 42" {
		t.Errorf("title attribute = %v", attrs["title"])
	}
	if _, ok := attrs["parent_uri"]; ok {
		t.Error("absent parent should be omitted")
	}
}

func TestData_IncludesParent(t *testing.T) {
	parent, _ := Parse("root/thread:7@1")
	addr, _ := Parse("root/msg:7.1@1")
	p := docPage{Base: NewBase(addr).WithParent(parent), Title: "Reply"}

	attrs, err := Data(p)
	if err != nil {
		t.Fatalf("Data() error = %v", err)
	}
	if attrs["parent_uri"] != "root/thread:7@1" {
		t.Errorf("parent_uri attribute = %v", attrs["parent_uri"])
	}
}

func TestData_NilPage(t *testing.T) {
	if _, err := Data(nil); err == nil {
		t.Error("expected error for nil page")
	}
}

func TestNewTextPage_TokenCount(t *testing.T) {
	addr, _ := Parse("root/text:1@1")
	p := NewTextPage(addr, "some page content that is long enough to count")
	if p.TokenCount < 1 {
		t.Errorf("TokenCount = %d, want >= 1", p.TokenCount)
	}
	if p.Address() != addr {
		t.Errorf("Address() = %v, want %v", p.Address(), addr)
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens(""); got != 0 {
		t.Errorf("EstimateTokens(empty) = %d, want 0", got)
	}
	if got := EstimateTokens("hi"); got != 1 {
		t.Errorf("EstimateTokens(short) = %d, want 1", got)
	}
	long := EstimateTokens("a long sentence with enough characters to cross several token boundaries")
	if long <= 1 {
		t.Errorf("EstimateTokens(long) = %d, want > 1", long)
	}
}
