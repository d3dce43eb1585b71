package services

import (
  "testing"
)

func TestSampleCompanies_CategoryMatch(t *testing.T) {
  companies := sampleCompanies("fintech", 10)
  if len(companies) != 3 {
    t.Fatalf("expected 3 fintech samples, got %d", len(companies))
  }
  for _, company := range companies {
    if company.Industry != "Financial Technology" {
      t.Fatalf("expected fintech samples, got %s (%s)", company.Name, company.Industry)
    }
    if company.Source != "sample" {
      t.Fatalf("samples must be tagged as such, got %q", company.Source)
    }
  }
}

func TestSampleCompanies_NameMatch(t *testing.T) {
  companies := sampleCompanies("anthropic", 10)
  if len(companies) != 1 || companies[0].Name != "Anthropic" {
    t.Fatalf("expected exactly Anthropic, got %+v", companies)
  }
}

func TestSampleCompanies_KeywordFallback(t *testing.T) {
  companies := sampleCompanies("crypto payments", 10)
  if len(companies) == 0 {
    t.Fatalf("expected keyword fallback to fintech")
  }
  for _, company := range companies {
    if company.Industry != "Financial Technology" {
      t.Fatalf("keyword fallback should pick fintech, got %s", company.Industry)
    }
  }
}

func TestSampleCompanies_DefaultsToAI(t *testing.T) {
  companies := sampleCompanies("something nobody tracks", 10)
  if len(companies) != 3 {
    t.Fatalf("expected 3 default samples, got %d", len(companies))
  }
  if companies[0].Industry != "Artificial Intelligence" {
    t.Fatalf("default category should be AI, got %s", companies[0].Industry)
  }
}

func TestSampleCompanies_AppliesLimit(t *testing.T) {
  companies := sampleCompanies("", 2)
  if len(companies) > 2 {
    t.Fatalf("expected at most 2, got %d", len(companies))
  }
}

func TestSampleCompany_DeterministicID(t *testing.T) {
  a := sampleCompany("Stripe", "d", "i", 2010, "l", "w", "b", "f", "s")
  b := sampleCompany("Stripe", "d2", "i2", 2011, "l2", "w2", "b2", "f2", "s2")
  if a.ID != b.ID {
    t.Fatalf("same name must yield the same id, got %s vs %s", a.ID, b.ID)
  }
  c := sampleCompany("Plaid", "d", "i", 2013, "l", "w", "b", "f", "s")
  if a.ID == c.ID {
    t.Fatalf("different names must yield different ids")
  }
}

func TestCompanyFromYC_MapsFields(t *testing.T) {
  company := companyFromYC(ycCompany{
    Name:            "Acme",
    OneLiner:        "Rockets for coyotes",
    LongDescription: "Longer pitch",
    Industries:      []string{"Aerospace", "Hardware"},
    AllLocations:    "Phoenix, AZ",
    Website:         "https://acme.test",
    Batch:           "W22",
    TeamSize:        42,
    Status:          "Active",
    Stage:           "Seed",
  })
  if company == nil {
    t.Fatalf("expected company")
  }
  if company.Industry != "Aerospace" {
    t.Fatalf("expected first industry, got %q", company.Industry)
  }
  if company.Employees != "42" {
    t.Fatalf("expected team size mapped, got %q", company.Employees)
  }
  if !company.IsActive {
    t.Fatalf("active status should map to IsActive")
  }
  if company.Source != "yc" {
    t.Fatalf("expected yc source, got %q", company.Source)
  }
}

func TestCompanyFromYC_SkipsUnnamed(t *testing.T) {
  if company := companyFromYC(ycCompany{Name: "  "}); company != nil {
    t.Fatalf("expected nil for blank name, got %+v", company)
  }
}

func TestCompanyFromYC_InactiveStatus(t *testing.T) {
  company := companyFromYC(ycCompany{Name: "Gone", Status: "Inactive"})
  if company.IsActive {
    t.Fatalf("inactive status should map to IsActive=false")
  }
}
