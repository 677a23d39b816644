package version

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func fakeGit(exactMatch string, describe string, exactErr, descErr error) func(...string) (string, error) {
	return func(args ...string) (string, error) {
		if len(args) == 0 {
			return "", fmt.Errorf("no args")
		}
		switch args[0] {
		case "rev-parse":
			return ".git", nil
		case "describe":
			for _, a := range args {
				if a == "--exact-match" {
					return exactMatch, exactErr
				}
			}
			return describe, descErr
		default:
			return "", fmt.Errorf("unexpected git subcommand %q", args[0])
		}
	}
}

func fakeGitNotARepo() func(...string) (string, error) {
	return func(...string) (string, error) {
		return "", fmt.Errorf("not a git repository")
	}
}

func TestResolveVersion(t *testing.T) {
	t.Parallel()

	noTag := fmt.Errorf("no tag")

	cases := []struct {
		name string
		base string
		git  func(...string) (string, error)
		want string
	}{
		{name: "tagged release", base: "1.0.0", git: fakeGit("v1.0.0", "", nil, nil), want: "1.0.0"},
		{name: "commits after tag", base: "1.0.0", git: fakeGit("", "v1.0.0-3-gabcdef", noTag, nil), want: "1.0.0-3-gabcdef"},
		{name: "dirty working tree", base: "1.0.0", git: fakeGit("", "v1.0.0-3-gabcdef-dirty", noTag, nil), want: "1.0.0-3-gabcdef-dirty"},
		{name: "no tags at all", base: "1.0.0", git: fakeGit("", "abcdef", noTag, nil), want: "1.0.0-abcdef"},
		{name: "dirty without tags", base: "1.0.0", git: fakeGit("", "abcdef-dirty", noTag, nil), want: "1.0.0-abcdef-dirty"},
		{name: "describe fails", base: "1.0.0", git: fakeGit("", "", noTag, fmt.Errorf("describe failed")), want: "1.0.0"},
		{name: "not a git repo", base: "1.0.0", git: fakeGitNotARepo(), want: "1.0.0"},
		{name: "empty base falls back to zero", base: "", git: fakeGitNotARepo(), want: "0.0.0"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, resolveVersion(tc.base, tc.git))
		})
	}
}
