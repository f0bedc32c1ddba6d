// Package model contains domain models passed between layers.
package model

import (
	"sort"
	"strings"
	"time"
)

// Velocity buckets recent commit activity.
type Velocity string

const (
	VelocityLow    Velocity = "Low"
	VelocityMedium Velocity = "Medium"
	VelocityHigh   Velocity = "High"
)

// Commit thresholds for the velocity buckets.
const (
	highVelocityCommits   = 50
	mediumVelocityCommits = 20
)

// VelocityFromCommits maps a 30 day commit count to a bucket.
func VelocityFromCommits(commits int) Velocity {
	switch {
	case commits > highVelocityCommits:
		return VelocityHigh
	case commits > mediumVelocityCommits:
		return VelocityMedium
	default:
		return VelocityLow
	}
}

// SkippedReason classifies why a harvest unit contributed nothing.
type SkippedReason string

const (
	SkipNetwork      SkippedReason = "network"
	SkipNotFound     SkippedReason = "not_found"
	SkipRateLimited  SkippedReason = "rate_limited"
	SkipUnauthorized SkippedReason = "unauthorized"
	SkipDecode       SkippedReason = "decode"
	SkipCanceled     SkippedReason = "canceled"
	SkipUpstream     SkippedReason = "upstream"
)

// SkippedUnit records one sub-request that failed during a harvest.
type SkippedUnit struct {
	Unit   string        `json:"unit"`
	Reason SkippedReason `json:"reason"`
	Detail string        `json:"detail,omitempty"`
}

// RawSignals is the normalized output of one harvest. A new value is built
// for every harvest; callers replace the previous one wholesale.
type RawSignals struct {
	LanguageBytes      map[string]int64 `json:"language_bytes"`
	DetectedFrameworks []string         `json:"detected_frameworks"`
	CommitsLast30Days  int              `json:"commits_last_30_days"`
	Velocity           Velocity         `json:"velocity"`
	TopRepo            string           `json:"top_repo"`
	HarvestedAt        time.Time        `json:"harvested_at"`
	Skipped            []SkippedUnit    `json:"skipped,omitempty"`
}

// EmptySignals returns a valid RawSignals with no data.
func EmptySignals(now time.Time) RawSignals {
	return RawSignals{
		LanguageBytes:      map[string]int64{},
		DetectedFrameworks: []string{},
		Velocity:           VelocityLow,
		HarvestedAt:        now,
	}
}

// Empty reports whether the bundle carries no activity at all.
func (s RawSignals) Empty() bool {
	return len(s.LanguageBytes) == 0 && len(s.DetectedFrameworks) == 0 && s.CommitsLast30Days == 0
}

// TotalBytes sums all language byte counts.
func (s RawSignals) TotalBytes() int64 {
	var total int64
	for _, b := range s.LanguageBytes {
		if b > 0 {
			total += b
		}
	}
	return total
}

// Bytes returns the byte count for a language, matching case-insensitively.
func (s RawSignals) Bytes(language string) int64 {
	if b, ok := s.LanguageBytes[language]; ok {
		return b
	}
	for k, b := range s.LanguageBytes {
		if strings.EqualFold(k, language) {
			return b
		}
	}
	return 0
}

// Clone returns a deep copy.
func (s RawSignals) Clone() RawSignals {
	out := s
	out.LanguageBytes = make(map[string]int64, len(s.LanguageBytes))
	for k, v := range s.LanguageBytes {
		out.LanguageBytes[k] = v
	}
	out.DetectedFrameworks = append([]string(nil), s.DetectedFrameworks...)
	out.Skipped = append([]SkippedUnit(nil), s.Skipped...)
	return out
}

// LanguageShare is one language with its byte count.
type LanguageShare struct {
	Language string
	Bytes    int64
}

// RankedLanguages orders languages by bytes desc, then name asc.
func (s RawSignals) RankedLanguages() []LanguageShare {
	out := make([]LanguageShare, 0, len(s.LanguageBytes))
	for k, v := range s.LanguageBytes {
		out = append(out, LanguageShare{Language: k, Bytes: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Bytes != out[j].Bytes {
			return out[i].Bytes > out[j].Bytes
		}
		return out[i].Language < out[j].Language
	})
	return out
}

// SkillConfidence maps a skill to a 0..100 confidence score.
type SkillConfidence map[string]int

// Profile holds the caller supplied user attributes the pipeline reads.
type Profile struct {
	UserID          string     `json:"user_id"`
	Login           string     `json:"login,omitempty"`
	Team            string     `json:"team,omitempty"`
	Organization    string     `json:"organization,omitempty"`
	Company         string     `json:"company,omitempty"`
	Region          string     `json:"region,omitempty"`
	ClaimedSkills   []string   `json:"claimed_skills,omitempty"`
	StreakCount     int        `json:"streak_count"`
	LastWeeklyCheck *time.Time `json:"last_weekly_check,omitempty"`
}

// Scope returns the benchmarking scope: team first, then organization.
func (p Profile) Scope() string {
	if p.Team != "" {
		return p.Team
	}
	return p.Organization
}
