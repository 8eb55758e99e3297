package ecat

import (
	"errors"
	"testing"
)

// Open-then-close on a nonexistent interface: setup_nic reports the error
// without leaving the port holding a half-open link, and a subsequent
// close is a harmless no-op.
func TestSetupNICFailureLeaksNoLink(t *testing.T) {
	p := NewPort()

	wantErr := errors.New("no such network interface")
	failingFactory := func(ifname string) (Link, error) {
		return nil, wantErr
	}

	err := p.SetupNIC("nonexistent0", false, WithLinkFactory(failingFactory))
	if !errors.Is(err, wantErr) {
		t.Fatalf("SetupNIC error = %v, want %v", err, wantErr)
	}
	if p.primary.link != nil {
		t.Fatalf("primary.link = %v after failed SetupNIC, want nil", p.primary.link)
	}

	if err := p.CloseNIC(); err != nil {
		t.Fatalf("CloseNIC on never-opened port: %v", err)
	}
}

// SetupNIC with no link factory configured fails fast rather than
// silently defaulting to some transport.
func TestSetupNICRequiresLinkFactory(t *testing.T) {
	p := NewPort()

	if err := p.SetupNIC("eth0", false); err == nil {
		t.Fatal("SetupNIC with no WithLinkFactory succeeded, want error")
	}
	if p.primary.link != nil {
		t.Fatalf("primary.link = %v, want nil", p.primary.link)
	}
}

// Secondary setup before a primary is open is rejected.
func TestSetupNICSecondaryWithoutPrimaryFails(t *testing.T) {
	p := NewPort()

	factory := func(ifname string) (Link, error) {
		return &fakeLink{}, nil
	}

	if err := p.SetupNIC("eth1", true, WithLinkFactory(factory)); err == nil {
		t.Fatal("SetupNIC(secondary=true) before primary succeeded, want error")
	}
}
