package git

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/waabox/autofixdeck/internal/domain"
)

// DetectRepository reads the .git/config in the given directory and returns
// a Repository built from the origin remote URL.
func DetectRepository(dir string) (domain.Repository, error) {
	configPath := filepath.Join(dir, ".git", "config")
	f, err := os.Open(configPath)
	if err != nil {
		return domain.Repository{}, fmt.Errorf("could not open .git/config: %w", err)
	}
	defer f.Close()

	var inOrigin bool
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == `[remote "origin"]` {
			inOrigin = true
			continue
		}
		if inOrigin && strings.HasPrefix(line, "[") {
			break
		}
		if inOrigin && strings.HasPrefix(line, "url") {
			parts := strings.SplitN(line, "=", 2)
			if len(parts) == 2 {
				return ParseRemoteURL(strings.TrimSpace(parts[1]))
			}
		}
	}
	return domain.Repository{}, errors.New("no origin remote found in .git/config")
}

// DetectProject returns the "group/project" path of the origin remote in dir.
// GitLab subgroups are kept: "group/sub/app".
func DetectProject(dir string) (string, error) {
	repo, err := DetectRepository(dir)
	if err != nil {
		return "", err
	}
	return repo.Path(), nil
}

// CurrentBranch returns the branch HEAD points to in dir.
func CurrentBranch(dir string) (string, error) {
	b, err := os.ReadFile(filepath.Join(dir, ".git", "HEAD"))
	if err != nil {
		return "", fmt.Errorf("could not read .git/HEAD: %w", err)
	}
	head := strings.TrimSpace(string(b))
	ref, ok := strings.CutPrefix(head, "ref: refs/heads/")
	if !ok {
		return "", errors.New("HEAD is detached")
	}
	return ref, nil
}

// ParseRemoteURL parses a git remote URL and returns a Repository.
// Supports HTTPS (https://gitlab.com/group/app.git), SCP-like SSH
// (git@gitlab.com:group/app.git) and ssh:// URLs. Everything after the first
// path segment is kept in Name, so subgroups survive.
// The RemoteURL field in the returned Repository preserves the original input URL unchanged.
func ParseRemoteURL(rawURL string) (domain.Repository, error) {
	originalURL := rawURL
	normalized := strings.TrimSuffix(strings.TrimSuffix(rawURL, "/"), ".git")

	// ssh://git@gitlab.com:2222/group/app
	if rest, ok := strings.CutPrefix(normalized, "ssh://"); ok {
		parts := strings.SplitN(rest, "/", 2)
		if len(parts) != 2 {
			return domain.Repository{}, fmt.Errorf("invalid SSH remote URL: %s", rawURL)
		}
		return splitProjectPath(parts[1], originalURL)
	}

	// SCP-like format: git@gitlab.com:group/app
	if strings.HasPrefix(normalized, "git@") {
		trimmed := strings.TrimPrefix(normalized, "git@")
		parts := strings.SplitN(trimmed, ":", 2)
		if len(parts) != 2 {
			return domain.Repository{}, fmt.Errorf("invalid SSH remote URL: %s", rawURL)
		}
		return splitProjectPath(parts[1], originalURL)
	}

	// HTTPS format: https://gitlab.com/group/app
	if strings.HasPrefix(normalized, "https://") || strings.HasPrefix(normalized, "http://") {
		withoutScheme := strings.TrimPrefix(normalized, "https://")
		withoutScheme = strings.TrimPrefix(withoutScheme, "http://")
		parts := strings.SplitN(withoutScheme, "/", 2)
		if len(parts) != 2 {
			return domain.Repository{}, fmt.Errorf("invalid HTTPS remote URL: %s", rawURL)
		}
		return splitProjectPath(parts[1], originalURL)
	}

	return domain.Repository{}, fmt.Errorf("unsupported remote URL format: %s", rawURL)
}

func splitProjectPath(path, originalURL string) (domain.Repository, error) {
	ownerRepo := strings.SplitN(path, "/", 2)
	if len(ownerRepo) != 2 || ownerRepo[0] == "" || ownerRepo[1] == "" {
		return domain.Repository{}, fmt.Errorf("invalid remote URL path: %s", path)
	}
	return domain.Repository{
		Owner:     ownerRepo[0],
		Name:      ownerRepo[1],
		RemoteURL: originalURL,
	}, nil
}
