package store

import (
	"context"
	"fmt"
	"strconv"
)

const (
	keyTheme         = "theme"
	keyNotifications = "notifications_enabled"
	keyReminderLead  = "reminder_lead_minutes"
)

func (s *Store) GetSetting(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	s.changed()
	return nil
}

func (s *Store) GetAllSettings() ([]Setting, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var settings []Setting
	for rows.Next() {
		var s Setting
		if err := rows.Scan(&s.Key, &s.Value); err != nil {
			return nil, err
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

// GetPreferences reads the user preferences, substituting defaults for
// missing or unparsable keys.
func (s *Store) GetPreferences(ctx context.Context) (Preferences, error) {
	p := DefaultPreferences()

	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM settings WHERE key IN (?, ?, ?)`,
		keyTheme, keyNotifications, keyReminderLead,
	)
	if err != nil {
		return p, fmt.Errorf("get preferences: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return p, err
		}
		switch k {
		case keyTheme:
			if t, ok := ParseTheme(v); ok {
				p.Theme = t
			}
		case keyNotifications:
			if b, err := strconv.ParseBool(v); err == nil {
				p.NotificationsEnabled = b
			}
		case keyReminderLead:
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= MaxReminderLeadMinutes {
				p.ReminderLeadMinutes = n
			}
		}
	}
	return p, rows.Err()
}

func (s *Store) SetTheme(t Theme) error {
	return s.SetSetting(keyTheme, string(t))
}

func (s *Store) SetNotificationsEnabled(enabled bool) error {
	return s.SetSetting(keyNotifications, strconv.FormatBool(enabled))
}

func (s *Store) SetReminderLead(minutes int) error {
	if minutes <= 0 || minutes > MaxReminderLeadMinutes {
		return fmt.Errorf("set reminder lead: minutes must be between 1 and %d, got %d", MaxReminderLeadMinutes, minutes)
	}
	return s.SetSetting(keyReminderLead, strconv.Itoa(minutes))
}
