package keypool

import (
	"sync"
	"testing"
)

func testCreds(n int) []Credential {
	names := []string{"a", "b", "c", "d", "e", "f"}
	creds := make([]Credential, n)
	for i := 0; i < n; i++ {
		creds[i] = Credential{Name: names[i], Secret: "secret-" + names[i]}
	}
	return creds
}

func TestGetActiveDoesNotAdvance(t *testing.T) {
	p := New("gemini", testCreds(3))
	for i := 0; i < 3; i++ {
		c, ok := p.GetActive()
		if !ok || c.Name != "a" {
			t.Fatalf("GetActive #%d = %+v, %v; want a", i, c, ok)
		}
	}
}

func TestRotateWraps(t *testing.T) {
	p := New("gemini", testCreds(3))
	want := []string{"a", "b", "c", "a", "b"}
	for i, w := range want {
		c, ok := p.GetActive()
		if !ok || c.Name != w {
			t.Fatalf("step %d: got %q; want %q", i, c.Name, w)
		}
		p.Rotate()
	}
}

func TestDisableSkipsEntry(t *testing.T) {
	p := New("gemini", testCreds(3))
	p.Disable("secret-a")

	for i := 0; i < 10; i++ {
		c, ok := p.GetActive()
		if !ok {
			t.Fatalf("pool unexpectedly empty")
		}
		if c.Name == "a" {
			t.Fatalf("disabled credential returned on step %d", i)
		}
		p.Rotate()
	}
	if p.ActiveCount() != 2 {
		t.Fatalf("ActiveCount = %d; want 2", p.ActiveCount())
	}
}

func TestAllDisabledReturnsNone(t *testing.T) {
	p := New("openrouter", testCreds(2))
	p.Disable("secret-a")
	p.Disable("secret-b")

	if c, ok := p.GetActive(); ok {
		t.Fatalf("GetActive = %+v; want none", c)
	}
	if p.ActiveCount() != 0 {
		t.Fatalf("ActiveCount = %d", p.ActiveCount())
	}
}

func TestEmptyPool(t *testing.T) {
	p := New("gemini", nil)
	if _, ok := p.GetActive(); ok {
		t.Fatalf("empty pool returned a credential")
	}
	p.Rotate()
	p.Disable("nothing")
}

func TestUnknownSecretStillRotates(t *testing.T) {
	p := New("gemini", testCreds(2))
	p.Disable("not-in-pool")
	c, _ := p.GetActive()
	if c.Name != "b" {
		t.Fatalf("GetActive after rotate = %q; want b", c.Name)
	}
	if p.ActiveCount() != 2 {
		t.Fatalf("unknown secret disabled something")
	}
}

func TestConcurrentDisableNeverLeaks(t *testing.T) {
	p := New("gemini", testCreds(6))
	disabled := map[string]bool{"secret-a": true, "secret-c": true, "secret-e": true}

	var wg sync.WaitGroup
	for s := range disabled {
		wg.Add(1)
		go func(secret string) {
			defer wg.Done()
			p.Disable(secret)
		}(s)
	}
	wg.Wait()

	errs := make(chan string, 64)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				c, ok := p.GetActive()
				if !ok {
					errs <- "pool reported empty"
					return
				}
				if disabled[c.Secret] {
					errs <- "disabled credential " + c.Name + " returned"
					return
				}
				p.Rotate()
			}
		}()
	}
	wg.Wait()
	close(errs)

	for e := range errs {
		t.Fatalf("%s", e)
	}
	if p.ActiveCount() != 3 {
		t.Fatalf("ActiveCount = %d; want 3", p.ActiveCount())
	}
}
