package sqlxrepos

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/academia/core"
)

func TestOrderBy(t *testing.T) {
	tests := []struct {
		name     string
		ordering []core.DBOrdering
		want     string
	}{
		{name: "default", want: "completed_at ASC, student_id ASC, attempt_number ASC"},
		{
			name:     "score",
			ordering: []core.DBOrdering{{Field: "score_percent"}},
			want:     "score_percent DESC, student_id ASC, attempt_number ASC",
		},
		{
			name:     "unknown fields dropped",
			ordering: []core.DBOrdering{{Field: "passed; --"}, {Field: "student_id", Ascending: true}},
			want:     "student_id ASC, student_id ASC, attempt_number ASC",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, orderBy(tt.ordering))
		})
	}
}
