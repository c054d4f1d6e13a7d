package clientconfig

import (
	"path/filepath"
	"testing"
)

func TestValidate_FillsDefaults(t *testing.T) {
	c := &Config{
		VaultDir: filepath.Join(t.TempDir(), "vault"),
		Endpoint: "https://vault.example.com",
		DeviceID: "device-1",
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if c.ConflictStrategy != ConflictAsk {
		t.Fatalf("expected default conflict strategy %q, got %q", ConflictAsk, c.ConflictStrategy)
	}
	if c.Path == "" {
		t.Fatal("expected default path to be filled in")
	}
}

func TestValidate_RejectsMissingDeviceID(t *testing.T) {
	c := &Config{Endpoint: "https://vault.example.com"}
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for missing device_id")
	}
}

func TestValidate_RejectsBadEndpoint(t *testing.T) {
	c := &Config{Endpoint: "not-a-url", DeviceID: "d1"}
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for malformed endpoint")
	}
}

func TestValidate_RejectsUnknownConflictStrategy(t *testing.T) {
	c := &Config{Endpoint: "https://vault.example.com", DeviceID: "d1", ConflictStrategy: "bogus"}
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for unknown conflict strategy")
	}
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	c := &Config{
		VaultDir:         filepath.Join(t.TempDir(), "vault"),
		Endpoint:         "https://vault.example.com",
		DeviceID:         "device-1",
		ConflictStrategy: ConflictKeepRemote,
		Path:             path,
	}
	if err := c.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if loaded.DeviceID != c.DeviceID || loaded.Endpoint != c.Endpoint {
		t.Fatalf("round trip mismatch: %+v vs %+v", loaded, c)
	}
}
