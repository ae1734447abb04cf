package series

import (
	"fmt"

	"github.com/zeromicro/go-zero/core/stores/sqlx"
)

func (s *Store) Conn() sqlx.SqlConn { return s.conn }

// MustTable is Table for series names known at compile time.
func (s *Store) MustTable(series string) *Table {
	t, ok := s.Table(series)
	if !ok {
		panic(fmt.Sprintf("series store: unknown series %q", series))
	}
	return t
}
