package config

import "testing"

func TestOrgProfileForKnownOrgMergesDefaults(t *testing.T) {
	profile := OrgProfileFor("blackhawk")
	if profile.BaseURL != "https://blackhawk.skiclubpro.team" {
		t.Fatalf("unexpected base url %q", profile.BaseURL)
	}
	if profile.LoginUserSelector == "" || profile.RowSelector == "" {
		t.Fatalf("expected defaults filled in, got %+v", profile)
	}
	if len(profile.ActionKeywords) == 0 {
		t.Fatalf("expected default action keywords, got %+v", profile)
	}
}

func TestOrgProfileForUnknownOrgFallsBackToDefaults(t *testing.T) {
	profile := OrgProfileFor("nobody-has-heard-of-this")
	if profile.ProgramsPath != defaultOrgProfile.ProgramsPath {
		t.Fatalf("expected default programs path, got %+v", profile)
	}
}

func TestOrgProfileOverridesWin(t *testing.T) {
	profile := OrgProfileFor("riverbend-daycamp")
	if profile.RowSelector != ".activity-card" {
		t.Fatalf("expected override row selector, got %q", profile.RowSelector)
	}
	if profile.LoginPath != defaultOrgProfile.LoginPath {
		t.Fatalf("expected default login path, got %q", profile.LoginPath)
	}
}

func TestProgramsURL(t *testing.T) {
	profile := OrgProfileFor("blackhawk")
	if got := profile.ProgramsURL(); got != "https://blackhawk.skiclubpro.team/registration" {
		t.Fatalf("unexpected programs url %q", got)
	}
}
