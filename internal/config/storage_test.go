package config

import "testing"

func TestValidateStorageConventions(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*StorageConventions)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*StorageConventions) {}},
		{name: "empty default container", mutate: func(c *StorageConventions) { c.DefaultContainer = " " }, wantErr: true},
		{name: "empty prefix", mutate: func(c *StorageConventions) { c.OrganizationPrefix = "" }, wantErr: true},
		{name: "colon in container", mutate: func(c *StorageConventions) { c.LegacyContainer = "a:b" }, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultStorageConventions()
			tc.mutate(&cfg)
			err := ValidateStorageConventions(cfg)
			if tc.wantErr && err == nil {
				t.Fatalf("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestStaticHolderReturnsConfiguredValue(t *testing.T) {
	cfg := DefaultStorageConventions()
	cfg.DefaultContainer = "shared"
	holder := NewStaticStorageConventions(cfg)
	if got := holder.Get().DefaultContainer; got != "shared" {
		t.Fatalf("expected shared, got %q", got)
	}

	var nilHolder *StorageConventionsHolder
	if got := nilHolder.Get().OrganizationPrefix; got != "org-" {
		t.Fatalf("expected default prefix, got %q", got)
	}
}
