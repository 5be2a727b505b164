package location

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// 測位時刻と期間指定の双方で受け付ける ISO-8601 表現です。先頭から順に試します。
// タイムゾーンを持たない表現は UTC として扱います。
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// SortNewestFirst は時刻の降順に安定ソートします。同時刻の記録は元の順序を保ちます。
func SortNewestFirst(locs []*Location) {
	sort.SliceStable(locs, func(i, j int) bool {
		return locs[i].Timestamp.After(locs[j].Timestamp)
	})
}

// Truncate は limit が正の場合に先頭 limit 件へ切り詰めます。
func Truncate(locs []*Location, limit int) []*Location {
	if limit > 0 && len(locs) > limit {
		return locs[:limit]
	}
	return locs
}

// LatestPerEmployee は社員ごとの最新の記録を新しい順に返します。
// 同時刻の記録が複数ある場合は先に挿入された記録を採用します。
func LatestPerEmployee(locs []*Location) []*Location {
	latest := make(map[string]*Location)
	order := make([]string, 0)
	for _, loc := range locs {
		cur, ok := latest[loc.EmployeeID]
		if !ok {
			order = append(order, loc.EmployeeID)
			latest[loc.EmployeeID] = loc
			continue
		}
		if loc.Timestamp.After(cur.Timestamp) {
			latest[loc.EmployeeID] = loc
		}
	}

	out := make([]*Location, 0, len(order))
	for _, id := range order {
		out = append(out, latest[id])
	}
	SortNewestFirst(out)
	return out
}

// ParseTimestamp は ISO-8601 の時刻文字列を UTC の時刻へ解釈します。
// 日付のみの場合はその日の 0 時（UTC）です。期間の境界も同じ規則で解釈し、暦日単位には広げません。
func ParseTimestamp(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, trimmed, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}

// FallbackAddress は住所が得られなかった場合に使う座標表記です。
func FallbackAddress(latitude, longitude float64) string {
	return fmt.Sprintf("%.6f, %.6f", latitude, longitude)
}
