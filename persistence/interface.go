// persistence/interface.go
package persistence

import (
	"context"
	"fmt"

	"github.com/wfunc/matchlobby/models"
)

// HistoryStore 比赛历史存储接口
// Only an append-only log is kept; live match state is never reloaded.
type HistoryStore interface {
	Record(ctx context.Context, e models.MatchEvent) error
	Recent(ctx context.Context, limit int) ([]models.MatchEvent, error)
	ByMatch(ctx context.Context, matchID string) ([]models.MatchEvent, error)
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = fmt.Errorf("record not found")
)

// DefaultRecentLimit caps Recent when a caller passes no limit.
const DefaultRecentLimit = 50

func clampLimit(limit int) int {
	if limit <= 0 || limit > 1000 {
		return DefaultRecentLimit
	}
	return limit
}
