package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

const rosterHashLen = 16

// RosterHash fingerprints an army list by unit names and points, ignoring
// order and battlefield state, so the same list hashes equally across games.
func RosterHash(units []*Unit) string {
	lines := make([]string, 0, len(units))
	for _, u := range units {
		if u == nil {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s|%s|%d", strings.ToLower(strings.TrimSpace(u.Faction)), strings.ToLower(strings.TrimSpace(u.Name)), u.PointsCost))
	}
	sort.Strings(lines)
	sum := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:])[:rosterHashLen]
}

// PrimaryFaction returns the most common faction label of a roster; ties go to
// the faction seen first. Empty rosters report "unknown".
func PrimaryFaction(units []*Unit) string {
	counts := make(map[string]int)
	order := make([]string, 0, 2)
	for _, u := range units {
		if u == nil {
			continue
		}
		f := strings.TrimSpace(u.Faction)
		if f == "" {
			continue
		}
		if counts[f] == 0 {
			order = append(order, f)
		}
		counts[f]++
	}
	best, bestN := unknownLabel, 0
	for _, f := range order {
		if counts[f] > bestN {
			best, bestN = f, counts[f]
		}
	}
	return best
}

// RosterPoints sums PointsCost over the living units of a roster.
func RosterPoints(units []*Unit) int {
	total := 0
	for _, u := range units {
		if u.IsAlive() {
			total += u.PointsCost
		}
	}
	return total
}
