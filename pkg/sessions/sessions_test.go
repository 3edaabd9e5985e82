package sessions

import (
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want []Session
	}{
		{
			name: "empty",
			out:  "",
		},
		{
			name: "single_session",
			out:  "dev|3|1|1722500000\n",
			want: []Session{{Name: "dev", Windows: 3, Attached: true, Created: "1722500000"}},
		},
		{
			name: "multiple_sessions",
			out:  "dev|3|1|1722500000\nscratch|1|0|1722500100\n",
			want: []Session{
				{Name: "dev", Windows: 3, Attached: true, Created: "1722500000"},
				{Name: "scratch", Windows: 1, Attached: false, Created: "1722500100"},
			},
		},
		{
			name: "missing_fields",
			out:  "bare\n",
			want: []Session{{Name: "bare"}},
		},
		{
			name: "name_with_spaces",
			out:  "my session|2|0|1722500000\n",
			want: []Session{{Name: "my session", Windows: 2, Attached: false, Created: "1722500000"}},
		},
		{
			name: "blank_lines_skipped",
			out:  "dev|1|0|1722500000\n\n",
			want: []Session{{Name: "dev", Windows: 1, Attached: false, Created: "1722500000"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parse(tt.out); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parse() = %v, want %v", got, tt.want)
			}
		})
	}
}
