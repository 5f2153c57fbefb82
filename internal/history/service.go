// Package history keeps a git-backed revision trail for content items.
// Every save commits the full item as JSON into a per-item repository,
// so editors can see who changed what and when, independent of the
// database's single current row.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"memoria/api/internal/content"
)

const snapshotFile = "item.json"

// Revision is one entry of an item's history, newest first.
type Revision struct {
	Hash    string    `json:"hash"`
	Message string    `json:"message"`
	Author  string    `json:"author"`
	When    time.Time `json:"when"`
}

type Service struct {
	baseDir string
	lockMu  sync.Mutex
	locks   map[string]*sync.Mutex
}

func New(baseDir string) *Service {
	return &Service{
		baseDir: baseDir,
		locks:   make(map[string]*sync.Mutex),
	}
}

func (s *Service) repoPath(module content.Module, id string) string {
	return filepath.Join(s.baseDir, string(module), id)
}

func (s *Service) itemLock(key string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}

// Snapshot commits the current state of the item, initializing the repo
// on first save. Committing an unchanged snapshot is a no-op.
func (s *Service) Snapshot(item content.Item, author, message string) error {
	path := s.repoPath(item.Module, item.ID)
	lock := s.itemLock(path)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(path)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create history dir: %w", err)
		}
		repo, err = git.PlainInit(path, false)
		if err != nil {
			return fmt.Errorf("init history repo: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("open history repo: %w", err)
	}

	payload, err := json.MarshalIndent(item, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal item snapshot: %w", err)
	}
	if err := os.WriteFile(filepath.Join(path, snapshotFile), append(payload, '\n'), 0o644); err != nil {
		return fmt.Errorf("write item snapshot: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}
	if _, err := worktree.Add(snapshotFile); err != nil {
		return fmt.Errorf("stage snapshot: %w", err)
	}

	status, err := worktree.Status()
	if err != nil {
		return fmt.Errorf("worktree status: %w", err)
	}
	if status.IsClean() {
		return nil
	}

	if message == "" {
		message = "Update " + item.Slug
	}
	_, err = worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  author,
			Email: sanitizeEmail(author) + "@memoria.local",
			When:  time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// Revisions lists an item's history, newest first. An item that was
// never snapshotted has no history, not an error.
func (s *Service) Revisions(module content.Module, id string) ([]Revision, error) {
	path := s.repoPath(module, id)
	lock := s.itemLock(path)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(path)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return []Revision{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open history repo: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return []Revision{}, nil
	}
	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read history log: %w", err)
	}
	defer iter.Close()

	var revisions []Revision
	err = iter.ForEach(func(commit *object.Commit) error {
		revisions = append(revisions, Revision{
			Hash:    commit.Hash.String(),
			Message: strings.TrimSpace(commit.Message),
			Author:  commit.Author.Name,
			When:    commit.Author.When,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate history log: %w", err)
	}
	return revisions, nil
}

func sanitizeEmail(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "."))
}
