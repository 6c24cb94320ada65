package tasks

import (
	"fmt"
	"sort"
	"time"

	"paneltrack/blank"
	"paneltrack/stage"
	"paneltrack/store"
)

// Wait buckets for visual triage on the station screens.
const (
	WaitShort  = "<2h"
	WaitMedium = "2-4h"
	WaitLong   = ">=4h"
)

// Task is one pending unit annotated for a station worker.
type Task struct {
	Unit       *store.ProductionUnit `json:"unit"`
	Locked     bool                  `json:"locked"`
	Missing    []stage.Stage         `json:"missing,omitempty"`
	Urgent     bool                  `json:"urgent"`
	WaitBucket string                `json:"wait_bucket"`
	Sheet      *blank.Sheet          `json:"sheet,omitempty"`
	NoSheet    bool                  `json:"no_sheet,omitempty"`
}

// OrderGroup collects a line item's pending tasks for one stage.
type OrderGroup struct {
	Item  *store.OrderItem `json:"item"`
	Tasks []Task           `json:"tasks"`
}

// Service answers station task queries from store snapshots. Reads are
// not serialized against the state machine; a stale row just means the
// worker sees a task that resolves to a no-op.
type Service struct {
	db  *store.DB
	now func() time.Time
}

func NewService(db *store.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// StationTasks returns every unit still pending the role's stage,
// grouped by order item (ascending id). Within a group units sort
// urgent-first, then by unit number.
func (s *Service) StationTasks(role string) ([]OrderGroup, error) {
	st, ok := stage.ForRole(role)
	if !ok {
		return nil, fmt.Errorf("role %q has no station stage", role)
	}
	return s.StageTasks(st)
}

// StageTasks is StationTasks keyed directly by stage, for admin views.
func (s *Service) StageTasks(st stage.Stage) ([]OrderGroup, error) {
	if !stage.Valid(st) {
		return nil, fmt.Errorf("unknown stage %q", st)
	}

	units, err := s.db.ListOpenUnits()
	if err != nil {
		return nil, fmt.Errorf("list open units: %w", err)
	}

	var pool []blank.Sheet
	if st == stage.PVCCut {
		sheets, err := s.db.ListActiveSheets()
		if err != nil {
			return nil, fmt.Errorf("list sheet pool: %w", err)
		}
		for _, sh := range sheets {
			pool = append(pool, blank.Sheet{ID: sh.ID, Width: sh.Width, Height: sh.Height})
		}
	}

	now := s.now()
	groups := make(map[int64]*OrderGroup)
	items := make(map[int64]*store.OrderItem)
	for _, u := range units {
		flags := u.Flags()
		if flags.Done(st) {
			continue
		}

		item, ok := items[u.OrderItemID]
		if !ok {
			item, err = s.db.GetOrderItem(u.OrderItemID)
			if err != nil {
				return nil, fmt.Errorf("load order item %d: %w", u.OrderItemID, err)
			}
			items[u.OrderItemID] = item
		}

		task := Task{
			Unit:       u,
			Missing:    stage.Missing(st, flags),
			Urgent:     stage.Urgent(st, flags),
			WaitBucket: waitBucket(now.Sub(u.CreatedAt)),
		}
		task.Locked = len(task.Missing) > 0
		if st == stage.PVCCut {
			w, h := blank.Required(item.WidthCode, item.HeightCode, item.DesignType)
			if sheet, ok := blank.BestFit(w, h, pool); ok {
				task.Sheet = &sheet
			} else {
				task.NoSheet = true
			}
		}

		g, ok := groups[u.OrderItemID]
		if !ok {
			g = &OrderGroup{Item: item}
			groups[u.OrderItemID] = g
		}
		g.Tasks = append(g.Tasks, task)
	}

	out := make([]OrderGroup, 0, len(groups))
	for _, g := range groups {
		sort.SliceStable(g.Tasks, func(i, j int) bool {
			if g.Tasks[i].Urgent != g.Tasks[j].Urgent {
				return g.Tasks[i].Urgent
			}
			return g.Tasks[i].Unit.UnitNumber < g.Tasks[j].Unit.UnitNumber
		})
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Item.ID < out[j].Item.ID })
	return out, nil
}

func waitBucket(d time.Duration) string {
	switch {
	case d < 2*time.Hour:
		return WaitShort
	case d < 4*time.Hour:
		return WaitMedium
	default:
		return WaitLong
	}
}
