package passwd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// UserInfo holds the display fields for a user entry.
type UserInfo struct {
	Username string
	Policy   Policy
}

// AddUser appends a new user entry to the passwd file at passwdPath.
// Returns an error if the username already exists.
func AddUser(passwdPath, username string, password []byte, policy Policy) error {
	if err := validUsername(username); err != nil {
		return err
	}

	entries, err := readEntries(passwdPath)
	if err != nil {
		return err
	}

	if _, ok := entries[username]; ok {
		return fmt.Errorf("user %q already exists", username)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(passwdPath), 0o750); err != nil {
		return fmt.Errorf("create passwd directory: %w", err)
	}

	f, err := os.OpenFile(passwdPath, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o640)
	if err != nil {
		return fmt.Errorf("open passwd file: %w", err)
	}
	defer func() { _ = f.Close() }()

	e := entry{username: username, hash: hash, policy: policy}
	_, err = fmt.Fprintln(f, e.String())
	return err
}

// DeleteUser removes the named user from the passwd file.
// Returns an error if the user does not exist.
func DeleteUser(passwdPath, username string) error {
	return rewritePasswd(passwdPath, username, func(entry) (string, bool) {
		return "", false
	})
}

// SetPolicy replaces the standing policy of the named user.
// Returns an error if the user does not exist.
func SetPolicy(passwdPath, username string, policy Policy) error {
	return rewritePasswd(passwdPath, username, func(e entry) (string, bool) {
		e.policy = policy
		return e.String(), true
	})
}

// ListUsers returns all user entries from the passwd file.
func ListUsers(passwdPath string) ([]UserInfo, error) {
	f, err := os.Open(passwdPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open passwd file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var users []UserInfo
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		e, err := parseEntry(line)
		if err != nil {
			continue
		}
		users = append(users, UserInfo{Username: e.username, Policy: e.policy})
	}

	return users, scanner.Err()
}

// readEntries reads the passwd file and returns all well-formed entries by
// username. Returns an empty map if the file does not exist.
func readEntries(passwdPath string) (map[string]entry, error) {
	entries := make(map[string]entry)

	f, err := os.Open(passwdPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return entries, nil
		}
		return nil, fmt.Errorf("open passwd file: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		e, err := parseEntry(line)
		if err != nil {
			continue
		}
		if _, dup := entries[e.username]; !dup {
			entries[e.username] = e
		}
	}

	return entries, scanner.Err()
}

// rewritePasswd passes the named user's entry to edit and replaces its line
// with the returned one, or drops the line if keep is false. All other lines,
// comments included, are preserved.
func rewritePasswd(passwdPath, username string, edit func(entry) (line string, keep bool)) error {
	f, err := os.Open(passwdPath)
	if err != nil {
		return fmt.Errorf("open passwd file: %w", err)
	}

	var lines []string
	found := false
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			lines = append(lines, line)
			continue
		}
		e, err := parseEntry(trimmed)
		if err != nil || e.username != username {
			lines = append(lines, line)
			continue
		}
		found = true
		if replacement, keep := edit(e); keep {
			lines = append(lines, replacement)
		}
	}
	err = scanner.Err()
	_ = f.Close()
	if err != nil {
		return err
	}

	if !found {
		return fmt.Errorf("user %q not found", username)
	}
	return writePasswd(passwdPath, lines)
}

// writePasswd atomically replaces the passwd file with the given lines.
func writePasswd(passwdPath string, lines []string) error {
	tmpPath := passwdPath + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o640)
	if err != nil {
		return fmt.Errorf("create temp passwd file: %w", err)
	}

	w := bufio.NewWriter(f)
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			_ = f.Close()
			_ = os.Remove(tmpPath)
			return err
		}
	}

	if err := w.Flush(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	return os.Rename(tmpPath, passwdPath)
}

func validUsername(username string) error {
	if username == "" || strings.ContainsAny(username, ":\n\r#") || strings.TrimSpace(username) != username {
		return fmt.Errorf("invalid username %q", username)
	}
	return nil
}
