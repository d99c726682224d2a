// Package templates owns the message bodies the bot posts. Defaults carry the
// long-standing Japanese wording; operators can override any of them from a
// YAML file that hot-reloads on change.
package templates

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Messages holds the bodies for every message the bot posts. Empty fields in
// an override file fall back to the defaults.
type Messages struct {
	Announcement  string `yaml:"announcement"`
	Summary       string `yaml:"summary"`
	Start         string `yaml:"start"`
	ManualConfirm string `yaml:"manual_confirm"`
}

const defaultAnnouncement = `@channel 【本日 勉強会】参加宣言（締切15:00）
本日 17:00–19:00 勉強会（渋谷＋Meet）です。
15:00までにこの投稿にリアクションで参加宣言してください：
✅ 対面（渋谷）
💻 オンライン（Meet）
💤 欠席
発表したい人は 🎤 を追加で押してください（先着2名／取り消しは🎤を外す）
発表者はスレッドに ` + "`テーマ：〇〇`" + ` と返信してください（後で変更OK）
Meet：{{meet_url}}`

const defaultSummary = `【一次確定サマリ 15:00】
対面: {{in_person}}
オンライン: {{online}}
欠席: {{absent}}
発表者:
{{presenters}}
Meet: {{meet_url}}`

const defaultStart = `@channel 勉強会を開始します！
Meet: {{meet_url}}
本日の発表者:
{{presenters}}`

const defaultManualConfirm = `参加宣言投稿を実行しました。`

// Defaults returns the built-in message set.
func Defaults() Messages {
	return Messages{
		Announcement:  defaultAnnouncement,
		Summary:       defaultSummary,
		Start:         defaultStart,
		ManualConfirm: defaultManualConfirm,
	}
}

// Service serves the current message set and keeps it in sync with an
// optional override file.
type Service struct {
	mu   sync.RWMutex
	msgs Messages
	path string
}

// NewService builds a service with defaults, merged with the override file at
// path when one is configured and readable.
func NewService(path string) *Service {
	s := &Service{msgs: Defaults(), path: path}
	if path == "" {
		return s
	}
	if err := s.Reload(); err != nil {
		log.Printf("⚠️  [TEMPLATES] Using defaults, override file not loaded: %v", err)
	}
	return s
}

// Reload re-reads the override file and merges it over the defaults.
func (s *Service) Reload() error {
	if s.path == "" {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read message templates: %w", err)
	}

	var override Messages
	if err := yaml.Unmarshal(data, &override); err != nil {
		return fmt.Errorf("failed to parse message templates: %w", err)
	}

	merged := Defaults()
	if override.Announcement != "" {
		merged.Announcement = override.Announcement
	}
	if override.Summary != "" {
		merged.Summary = override.Summary
	}
	if override.Start != "" {
		merged.Start = override.Start
	}
	if override.ManualConfirm != "" {
		merged.ManualConfirm = override.ManualConfirm
	}

	s.mu.Lock()
	s.msgs = merged
	s.mu.Unlock()

	log.Printf("✅ [TEMPLATES] Message templates loaded from %s", s.path)
	return nil
}

// StartWatcher hot-reloads the override file on change. Watches the parent
// directory, which survives editors that replace the file.
func (s *Service) StartWatcher() {
	if s.path == "" {
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("⚠️  [TEMPLATES] Failed to create file watcher: %v", err)
		return
	}

	absPath, err := filepath.Abs(s.path)
	if err != nil {
		log.Printf("⚠️  [TEMPLATES] Failed to resolve %s: %v", s.path, err)
		watcher.Close()
		return
	}

	dir := filepath.Dir(absPath)
	filename := filepath.Base(absPath)

	if err := watcher.Add(dir); err != nil {
		log.Printf("⚠️  [TEMPLATES] Failed to watch %s: %v", dir, err)
		watcher.Close()
		return
	}

	log.Printf("👁️  [TEMPLATES] Watching %s for changes", s.path)

	go func() {
		defer watcher.Close()

		var debounceTimer *time.Timer
		const debounce = 500 * time.Millisecond

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != filename {
					continue
				}
				if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
					if debounceTimer != nil {
						debounceTimer.Stop()
					}
					debounceTimer = time.AfterFunc(debounce, func() {
						if err := s.Reload(); err != nil {
							log.Printf("❌ [TEMPLATES] Reload failed: %v", err)
						}
					})
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("⚠️  [TEMPLATES] Watcher error: %v", err)
			}
		}
	}()
}

func (s *Service) current() Messages {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.msgs
}

// SummaryValues feeds the summary template.
type SummaryValues struct {
	InPerson   string
	Online     string
	Absent     string
	Presenters string
	MeetURL    string
}

// StartValues feeds the start template.
type StartValues struct {
	Presenters string
	MeetURL    string
}

// AnnouncementText renders the daily announcement.
func (s *Service) AnnouncementText(meetURL string) string {
	return interpolate(s.current().Announcement, map[string]string{
		"meet_url": meetURL,
	})
}

// SummaryText renders the mid-afternoon summary.
func (s *Service) SummaryText(v SummaryValues) string {
	return interpolate(s.current().Summary, map[string]string{
		"in_person":  v.InPerson,
		"online":     v.Online,
		"absent":     v.Absent,
		"presenters": v.Presenters,
		"meet_url":   v.MeetURL,
	})
}

// StartText renders the meeting-start broadcast.
func (s *Service) StartText(v StartValues) string {
	return interpolate(s.current().Start, map[string]string{
		"presenters": v.Presenters,
		"meet_url":   v.MeetURL,
	})
}

// ManualConfirmText renders the reply to the manual announce command.
func (s *Service) ManualConfirmText() string {
	return s.current().ManualConfirm
}

var placeholderRe = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// interpolate replaces {{key}} placeholders with values, keeping unknown
// placeholders as-is.
func interpolate(template string, values map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		key := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(match, "{{"), "}}"))
		if v, ok := values[key]; ok {
			return v
		}
		return match
	})
}
