package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/halvorsen/ledger/internal/digest"
	"github.com/halvorsen/ledger/internal/integrity"
	"github.com/halvorsen/ledger/internal/repo"
)

var fsckFast bool

var fsckCmd = &cobra.Command{
	Use:   "fsck",
	Short: "Verify every object's stored digest against its content",
	Long: `By default re-hashes every object's decompressed content and
compares it against the digest it's stored under (§C.2), the
authoritative check.

With --fast, a cheap BLAKE3 fingerprint from the previous fsck run
(cached at .ledger/fsck-fingerprints.json) is compared against the
object's current fingerprint first; only objects whose fingerprint
changed (or that have no prior recording) get the full SHA-256
recheck. A clean --fast run still updates the cache.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepo()
		if err != nil {
			return err
		}
		defer r.Close()

		if !fsckFast {
			return runFullFsck(r)
		}
		return runFastFsck(r)
	},
}

func runFullFsck(r *repo.Repo) error {
	report, err := r.Fsck()
	if err != nil {
		return err
	}
	return reportFsck(report)
}

func reportFsck(report integrity.Report) error {
	fmt.Printf("scanned %d object(s)\n", report.Scanned)
	for _, p := range report.Problems {
		fmt.Printf("corrupt: %s: %s\n", p.Digest, p.Reason)
	}
	if !report.OK() {
		return fmt.Errorf("fsck found %d corrupt object(s)", len(report.Problems))
	}
	fmt.Println("all objects verified")
	return nil
}

func fingerprintCachePath(r *repo.Repo) string {
	return filepath.Join(r.MetaDir, "fsck-fingerprints.json")
}

func loadFingerprintCache(r *repo.Repo) map[string]integrity.Fingerprint {
	data, err := os.ReadFile(fingerprintCachePath(r))
	if err != nil {
		return map[string]integrity.Fingerprint{}
	}
	var raw map[string][32]byte
	if err := json.Unmarshal(data, &raw); err != nil {
		return map[string]integrity.Fingerprint{}
	}
	out := make(map[string]integrity.Fingerprint, len(raw))
	for k, v := range raw {
		out[k] = integrity.Fingerprint(v)
	}
	return out
}

func saveFingerprintCache(r *repo.Repo, cache map[string]integrity.Fingerprint) error {
	raw := make(map[string][32]byte, len(cache))
	for k, v := range cache {
		raw[k] = [32]byte(v)
	}
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(fingerprintCachePath(r), data, 0644)
}

// runFastFsck uses the BLAKE3 fingerprint cache as an advisory
// pre-filter (§B, "fsck --fast"): only digests whose fingerprint is
// new or has changed since the last run get the authoritative
// SHA-256 recheck that integrity.Scan performs on every object.
func runFastFsck(r *repo.Repo) error {
	cache := loadFingerprintCache(r)
	var suspect []digest.Digest
	scanned := 0

	err := r.Store.Walk(func(d digest.Digest) error {
		scanned++
		_, content, readErr := r.Store.Read(d)
		if readErr != nil {
			suspect = append(suspect, d)
			return nil
		}
		current := integrity.Fingerprint32(content)
		key := d.String()
		prior, known := cache[key]
		if !known {
			suspect = append(suspect, d)
		} else {
			match, checkErr := integrity.QuickCheck(r.Store, d, prior)
			if checkErr != nil || !match {
				suspect = append(suspect, d)
			}
		}
		cache[key] = current
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Printf("scanned %d object(s), %d flagged for full verification\n", scanned, len(suspect))
	var problems []integrity.Problem
	for _, d := range suspect {
		typ, content, readErr := r.Store.Read(d)
		if readErr != nil {
			problems = append(problems, integrity.Problem{Digest: d, Reason: readErr.Error()})
			continue
		}
		recomputed, _ := digest.HashFramed(typ, content)
		if recomputed != d {
			problems = append(problems, integrity.Problem{
				Digest: d,
				Reason: "stored digest does not match recomputed SHA-256 of its framed content",
			})
		}
	}

	if err := saveFingerprintCache(r, cache); err != nil {
		return fmt.Errorf("fsck: save fingerprint cache: %w", err)
	}

	for _, p := range problems {
		fmt.Printf("corrupt: %s: %s\n", p.Digest, p.Reason)
	}
	if len(problems) > 0 {
		return fmt.Errorf("fsck --fast found %d corrupt object(s)", len(problems))
	}
	fmt.Println("all flagged objects verified")
	return nil
}

func init() {
	fsckCmd.Flags().BoolVar(&fsckFast, "fast", false, "use a cached BLAKE3 fingerprint as a pre-filter before the authoritative SHA-256 check")
}
