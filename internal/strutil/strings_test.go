package strutil

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRemoveExtraSpaces(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		source string
		want   string
	}{
		{
			name:   "test_not_modifying_0",
			source: "Hello world!",
			want:   "Hello world!",
		},
		{
			name:   "test_not_extra_space_inner",
			source: "Hello  world!",
			want:   "Hello world!",
		},
		{
			name: "test_not_extra_space_inner_tab",
			source: "Hello        	world!",
			want: "Hello world!",
		},
		{
			name:   "test_not_extra_space_inner_outer",
			source: "   Hello        world!   ",
			want:   "Hello world!",
		},
		{
			name: "test_not_extra_space_inner_outer_tab_0",
			source: "   Hello        	world!   ",
			want: "Hello world!",
		},
		{
			name:   "test_newline_inside_cell",
			source: "\n   US\n      Dollar\n ",
			want:   "US Dollar",
		},
		{
			name: "test_not_extra_space_inner_outer_tab_1",
			source: "   	Hello        	w.  o.  r.  l.  d!   ",
			want: "Hello w. o. r. l. d!",
		},
	}

	for _, test := range testCases {
		test := test

		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			got := RemoveExtraSpaces(test.source)
			if got != test.want {
				diff := cmp.Diff(test.want, got)
				t.Errorf("mismatch (-want, +got):\n%s", diff)
			}
		})
	}
}
