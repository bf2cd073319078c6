package models

// Settings is the single-row application settings record.
type Settings struct {
	CompanyName   string `json:"company_name"`
	LogoURL       string `json:"logo_url,omitempty"`
	AdminPassword string `json:"admin_password,omitempty"`
}

// DefaultSettings is returned when neither the remote store nor the local
// cache has a settings record yet.
func DefaultSettings() Settings {
	return Settings{
		CompanyName:   "Supplier Ledger",
		AdminPassword: "1234",
	}
}
