package provider

import (
	"errors"
	"strings"
	"testing"
)

func TestRegistryByName(t *testing.T) {
	t.Parallel()

	r := NewRegistry(newStub("outlook", "outlook.com"), newStub("gmx", "gmx.com"))

	for _, name := range r.Names() {
		for _, variant := range []string{name, strings.ToUpper(name), " " + name + " "} {
			p, err := r.ByName(variant)
			if err != nil {
				t.Fatalf("ByName(%q): unexpected error: %v", variant, err)
			}
			if !strings.EqualFold(p.Name(), name) {
				t.Errorf("ByName(%q): got %q, want %q", variant, p.Name(), name)
			}
		}
	}
}

func TestRegistryByName_Unknown(t *testing.T) {
	t.Parallel()

	r := NewRegistry(newStub("outlook", "outlook.com"))

	for _, name := range []string{"", "   ", "bogus"} {
		_, err := r.ByName(name)
		if !errors.Is(err, ErrResolution) {
			t.Errorf("ByName(%q): got %v, want resolution error", name, err)
		}
	}

	_, err := r.ByName("bogus")
	if !strings.Contains(err.Error(), `unrecognized provider name "bogus"`) {
		t.Errorf("error message: got %q", err.Error())
	}
}

func TestRegistryByEmail(t *testing.T) {
	t.Parallel()

	r := NewRegistry(newStub("outlook", "outlook.com", "hotmail.com"))

	tests := []struct {
		addr    string
		want    string
		wantErr bool
	}{
		{addr: "user@outlook.com", want: "outlook"},
		{addr: "USER@OUTLOOK.COM", want: "outlook"},
		{addr: "someone@Hotmail.com", want: "outlook"},
		{addr: "user@unknown.tld", wantErr: true},
		{addr: "user@outlook.com.evil.tld", wantErr: true},
		{addr: "outlook.com", wantErr: true},
		{addr: "user@", wantErr: true},
		{addr: "", wantErr: true},
	}

	for _, tt := range tests {
		p, err := r.ByEmail(tt.addr)
		if tt.wantErr {
			if !errors.Is(err, ErrResolution) {
				t.Errorf("ByEmail(%q): got %v, want resolution error", tt.addr, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ByEmail(%q): unexpected error: %v", tt.addr, err)
			continue
		}
		if p.Name() != tt.want {
			t.Errorf("ByEmail(%q): got %q, want %q", tt.addr, p.Name(), tt.want)
		}
	}

	_, err := r.ByEmail("user@unknown.tld")
	if !strings.Contains(err.Error(), `unrecognized provider email "user@unknown.tld"`) {
		t.Errorf("error message: got %q", err.Error())
	}
}

func TestRegistryByEmail_RegistrationOrderWins(t *testing.T) {
	t.Parallel()

	r := NewRegistry(newStub("first", "shared.com"), newStub("second", "shared.com"))

	p, err := r.ByEmail("a@shared.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "first" {
		t.Errorf("got %q, want %q", p.Name(), "first")
	}
}

func TestRegistryResolve_EmailTakesPrecedence(t *testing.T) {
	t.Parallel()

	r := NewRegistry(newStub("outlook", "outlook.com"), newStub("gmx", "gmx.com"))

	p, err := r.Resolve("alice@gmx.com")
	if err != nil {
		t.Fatalf("Resolve email: unexpected error: %v", err)
	}
	if p.Name() != "gmx" {
		t.Errorf("Resolve email: got %q, want gmx", p.Name())
	}

	p, err = r.Resolve("Outlook")
	if err != nil {
		t.Fatalf("Resolve name: unexpected error: %v", err)
	}
	if p.Name() != "outlook" {
		t.Errorf("Resolve name: got %q, want outlook", p.Name())
	}

	if _, err := r.Resolve("alice@nowhere.tld"); !errors.Is(err, ErrResolution) {
		t.Errorf("Resolve unknown email: got %v, want resolution error", err)
	}
}

func TestRegistryRegister(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if err := r.Register(newStub("outlook", "outlook.com")); err != nil {
		t.Fatalf("Register: unexpected error: %v", err)
	}
	if err := r.Register(newStub("OUTLOOK", "outlook.com")); err == nil {
		t.Error("Register duplicate: expected error")
	}
	if err := r.Register(newStub("", "x.com")); err == nil {
		t.Error("Register empty name: expected error")
	}
	if err := r.Register(nil); err == nil {
		t.Error("Register nil: expected error")
	}

	names := r.Names()
	if len(names) != 1 || names[0] != "outlook" {
		t.Errorf("Names: got %v, want [outlook]", names)
	}
	if got := len(r.Providers()); got != 1 {
		t.Errorf("Providers: got %d, want 1", got)
	}
}

func TestRegistryMustRegister_Panics(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	NewRegistry(newStub("outlook", "outlook.com"), newStub("outlook", "outlook.com"))
}
