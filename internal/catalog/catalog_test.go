package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTier(t *testing.T) {
	assert.Equal(t, "SD", Tier("SD Kelas 4"))
	assert.Equal(t, "SMP", Tier("SMP Kelas 8"))
	assert.Equal(t, "SMA", Tier("SMA Kelas 12"))
	assert.Equal(t, "", Tier(""))
}

func TestValidClassLevel(t *testing.T) {
	for _, level := range ClassLevels {
		assert.True(t, ValidClassLevel(level), level)
	}
	assert.False(t, ValidClassLevel("SD Kelas 7"))
	assert.False(t, ValidClassLevel(""))
}

func TestValidSubject(t *testing.T) {
	assert.True(t, ValidSubject("SD Kelas 1", "Matematika"))
	assert.True(t, ValidSubject("SMP Kelas 9", "Matematika"))
	assert.False(t, ValidSubject("SD Kelas 1", "Matematika (Wajib)"))
	assert.False(t, ValidSubject("SD Kelas 1", ""))
	assert.False(t, ValidSubject("", "Matematika"))
}

func TestSubjectsForLevelFollowTier(t *testing.T) {
	assert.Equal(t, SubjectsByTier["SD"], SubjectsForLevel("SD Kelas 3"))
	assert.Equal(t, SubjectsByTier["SMA"], SubjectsForLevel("SMA Kelas 11"))
	assert.Empty(t, SubjectsForLevel("TK Kelas A"))
}

func TestValidIcon(t *testing.T) {
	for _, icon := range Icons {
		assert.True(t, ValidIcon(icon), icon)
	}
	assert.False(t, ValidIcon("Rocket"))
	assert.False(t, ValidIcon(""))
}

func TestFallbackPrompts(t *testing.T) {
	// Direct subject hit.
	direct := FallbackPrompts("SD Kelas 2", "Matematika")
	require.NotEmpty(t, direct)
	assert.Equal(t, PromptsByTier["SD"]["Matematika"], direct)

	// Subject without a curated set falls back to the tier's general set.
	tierFallback := FallbackPrompts("SD Kelas 2", "PPKn")
	assert.Equal(t, PromptsByTier["SD"]["Umum"], tierFallback)

	// Unknown tier falls back to the global general set.
	general := FallbackPrompts("Universitas Semester 1", "Kalkulus")
	assert.Equal(t, GeneralPrompts, general)
}

func TestFallbackPromptsAreWellFormed(t *testing.T) {
	check := func(prompts []ExamplePrompt) {
		for _, p := range prompts {
			assert.True(t, ValidIcon(p.Icon), p.Icon)
			assert.NotEmpty(t, p.Title)
			assert.NotEmpty(t, p.Prompt)
		}
	}
	check(GeneralPrompts)
	for _, bySubject := range PromptsByTier {
		for _, prompts := range bySubject {
			check(prompts)
		}
	}
}

func TestPackageByID(t *testing.T) {
	pkg := PackageByID("student")
	require.NotNil(t, pkg)
	assert.Equal(t, 250, pkg.Tokens)
	assert.Equal(t, int64(25000), pkg.Price)

	assert.Nil(t, PackageByID("platinum"))
	assert.Nil(t, PackageByID(""))
}
