package extract

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		text  string
		title string
		want  string
	}{
		{
			name:  "title truncated at pipe",
			title: "Google STEP Internship | Apply Now 2026",
			want:  "Google STEP Internship",
		},
		{
			name:  "title truncated at hyphen",
			title: "Summer Research Fellowship - IISc Bangalore",
			want:  "Summer Research Fellowship",
		},
		{
			name:  "title truncated at en dash",
			title: "Digital India Internship Scheme – MeitY",
			want:  "Digital India Internship Scheme",
		},
		{
			name:  "notice title falls back to heading",
			text:  "menu\n# Summer Research Fellowship 2026\nbody",
			title: "Notice: important",
			want:  "Summer Research Fellowship",
		},
		{
			name:  "short title falls back to heading",
			text:  "## Sub heading\n# ISRO Student Internship Programme\n",
			title: "ISRO",
			want:  "ISRO Student Internship Programme",
		},
		{
			name:  "short title without heading keeps title",
			title: "ISRO",
			want:  "ISRO",
		},
		{
			name:  "blank heading line is skipped",
			text:  "#   \n# Real Heading Internship\n",
			title: "abc",
			want:  "Real Heading Internship",
		},
		{
			name:  "noise words removed case-insensitively",
			title: "Welcome to the AI Fellowship portal registration form",
			want:  "the AI Fellowship",
		},
		{
			name:  "noise does not eat inside words",
			title: "Information Security Trainee Programme",
			want:  "Information Security Trainee Programme",
		},
		{
			name:  "empty after cleaning",
			title: "Home",
			want:  FallbackName,
		},
		{
			name: "nothing at all",
			want: FallbackName,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, Name(tt.text, tt.title))
		})
	}
}

func TestNameNeverExceedsLimit(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("Fellowship ", 30)
	got := Name("", long)
	require.LessOrEqual(t, utf8.RuneCountInString(got), MaxNameLength)
	require.True(t, strings.HasPrefix(got, "Fellowship Fellowship"))
}

func TestNameStripsApplyNow(t *testing.T) {
	t.Parallel()

	got := Name("", "Google STEP Internship | Apply Now 2026")
	require.NotContains(t, got, "Apply Now")
	require.NotContains(t, got, "2026")
}

func FuzzName(f *testing.F) {
	f.Add("# Heading\ntext", "Title | Apply Now")
	f.Add("", "")
	f.Fuzz(func(t *testing.T, text, title string) {
		got := Name(text, title)
		if utf8.RuneCountInString(got) > MaxNameLength {
			t.Fatalf("Name() returned %d runes", utf8.RuneCountInString(got))
		}
		if got == "" {
			t.Fatal("Name() returned an empty string")
		}
	})
}
