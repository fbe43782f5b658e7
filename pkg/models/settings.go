package models

// Settings are the user preferences persisted next to the session.
type Settings struct {
	APIEndpoint   string        `yaml:"api_endpoint" json:"api_endpoint"`
	SaveHistory   bool          `yaml:"save_history" json:"save_history"`
	Notifications Notifications `yaml:"notifications" json:"notifications"`
}

// Notifications toggles the alerts shown after analysis.
type Notifications struct {
	HighPriorityAlerts bool `yaml:"high_priority_alerts" json:"high_priority_alerts"`
	BatchComplete      bool `yaml:"batch_complete" json:"batch_complete"`
}

// DefaultSettings mirrors the defaults of a fresh account.
func DefaultSettings() Settings {
	return Settings{
		SaveHistory: true,
		Notifications: Notifications{
			HighPriorityAlerts: true,
			BatchComplete:      true,
		},
	}
}

// User is the profile returned by the backend on login.
type User struct {
	ID       string `yaml:"id" json:"id"`
	Email    string `yaml:"email" json:"email"`
	Username string `yaml:"username" json:"username"`
	Fullname string `yaml:"fullname" json:"fullname"`
}

// DisplayName picks the most human-friendly identifier available.
func (u User) DisplayName() string {
	switch {
	case u.Fullname != "":
		return u.Fullname
	case u.Username != "":
		return u.Username
	}
	return u.Email
}
