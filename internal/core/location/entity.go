package location

import "time"

// Source は位置情報の取得元です。
type Source string

const (
	SourceGPS    Source = "gps"
	SourceManual Source = "manual"
	SourceWiFi   Source = "wifi"
)

// Location は 1 件の測位記録（フィックス）です。作成後は削除以外で変更されません。
type Location struct {
	ID         string
	EmployeeID string
	Latitude   float64
	Longitude  float64
	Address    string
	Timestamp  time.Time
	Accuracy   float64
	Source     Source
}

// Clone は測位記録のコピーを返します。
func (l *Location) Clone() *Location {
	if l == nil {
		return nil
	}
	c := *l
	return &c
}

// EmployeeHistory は社員ごとの測位履歴の取得結果です。
type EmployeeHistory struct {
	EmployeeID      string
	CurrentLocation *Location
	LocationHistory []*Location
	// TotalRecords は件数制限を適用する前、期間絞り込み後の件数です。
	TotalRecords int
}

// Remaining は件数制限により返却されなかった件数を返します。
func (h *EmployeeHistory) Remaining() int {
	if h == nil {
		return 0
	}
	if rest := h.TotalRecords - len(h.LocationHistory); rest > 0 {
		return rest
	}
	return 0
}
