package route

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/autofiler/internal/model"
)

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o600))
	return path
}

func TestRouter_Route(t *testing.T) {
	t.Run("no candidate goes to review", func(t *testing.T) {
		root := t.TempDir()
		reviewDir := filepath.Join(root, "review")
		router := NewRouter(reviewDir, 0.55)

		path := writeFile(t, root, "mystery.txt")
		decision, err := router.Route(path, "", nil)
		require.NoError(t, err)

		assert.Equal(t, model.DecisionReview, decision.Decision)
		assert.Equal(t, "no_candidate", decision.Reason)
		assert.Equal(t, filepath.Join(reviewDir, "mystery.txt"), decision.ReviewPath)
		_, statErr := os.Stat(decision.ReviewPath)
		assert.NoError(t, statErr)
	})

	t.Run("score below threshold goes to review with exact reason", func(t *testing.T) {
		root := t.TempDir()
		router := NewRouter(filepath.Join(root, "review"), 0.7)

		path := writeFile(t, root, "weak.txt")
		score := 0.6
		decision, err := router.Route(path, "invoice", &score)
		require.NoError(t, err)

		assert.Equal(t, model.DecisionReview, decision.Decision)
		assert.Equal(t, "score_0.6_below_threshold_0.7", decision.Reason)
		assert.Equal(t, "invoice", decision.TypeName)
	})

	t.Run("score at threshold auto files", func(t *testing.T) {
		root := t.TempDir()
		router := NewRouter(filepath.Join(root, "review"), 0.55)

		path := writeFile(t, root, "strong.txt")
		score := 0.6
		decision, err := router.Route(path, "invoice", &score)
		require.NoError(t, err)

		assert.Equal(t, model.DecisionAutoFile, decision.Decision)
		// Auto-filed files are not moved by the router.
		_, statErr := os.Stat(path)
		assert.NoError(t, statErr)
	})

	t.Run("review name collisions get numeric suffixes", func(t *testing.T) {
		root := t.TempDir()
		reviewDir := filepath.Join(root, "review")
		router := NewRouter(reviewDir, 0.55)

		first := writeFile(t, root, "dup.txt")
		d1, err := router.Route(first, "", nil)
		require.NoError(t, err)

		second := writeFile(t, root, "dup.txt")
		d2, err := router.Route(second, "", nil)
		require.NoError(t, err)

		assert.Equal(t, filepath.Join(reviewDir, "dup.txt"), d1.ReviewPath)
		assert.Equal(t, filepath.Join(reviewDir, "dup_1.txt"), d2.ReviewPath)

		third := writeFile(t, root, "dup.txt")
		d3, err := router.Route(third, "", nil)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(reviewDir, "dup_2.txt"), d3.ReviewPath)
	})
}
