package store

import "fmt"

func (s *Store) GetSetting(key string) (string, error) {
	var value string
	if err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value); err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// TimeSummaryFormat returns the persisted summary format preference,
// "fraction" or "clock".
func (s *Store) TimeSummaryFormat() (string, error) {
	return s.GetSetting(SettingTimeSummaryFormat)
}

// HideRegistered reports whether registered time is filtered out of reports.
func (s *Store) HideRegistered() (bool, error) {
	value, err := s.GetSetting(SettingHideRegistered)
	if err != nil {
		return false, err
	}
	return value == "true", nil
}

func (s *Store) GetAllSettings() ([]Setting, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var settings []Setting
	for rows.Next() {
		var st Setting
		if err := rows.Scan(&st.Key, &st.Value); err != nil {
			return nil, err
		}
		settings = append(settings, st)
	}
	return settings, rows.Err()
}
