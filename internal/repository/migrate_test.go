package repository

import "testing"

func TestLoadMigrationsParsesVersionAndDescription(t *testing.T) {
	migs, err := loadMigrations()
	if err != nil {
		t.Fatalf("loadMigrations: %v", err)
	}
	if len(migs) == 0 {
		t.Fatal("expected at least one embedded migration")
	}
	if migs[0].Version != 1 {
		t.Errorf("first migration version = %d, want 1", migs[0].Version)
	}
	if migs[0].Description == "" {
		t.Error("expected a non-empty description")
	}
	for i := 1; i < len(migs); i++ {
		if migs[i].Version <= migs[i-1].Version {
			t.Fatalf("migrations not sorted ascending: %d then %d", migs[i-1].Version, migs[i].Version)
		}
	}
}
