package store

import (
	"database/sql"
)

// KeypointRecord is one stored joint.
type KeypointRecord struct {
	Index int     `json:"index"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Score float64 `json:"score"`
}

// DetectionRecord is one stored box, the region it was mapped to, and the
// keypoints estimated inside it.
type DetectionRecord struct {
	ID         int64   `json:"id"`
	RunID      string  `json:"run_id"`
	FrameIndex int     `json:"frame_index"`
	Label      string  `json:"label"`
	Score      float64 `json:"score"`
	X0         float64 `json:"x0"`
	Y0         float64 `json:"y0"`
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	CenterX    float64 `json:"center_x"`
	CenterY    float64 `json:"center_y"`
	ScaleX     float64 `json:"scale_x"`
	ScaleY     float64 `json:"scale_y"`

	Keypoints []KeypointRecord `json:"keypoints"`
}

// DetectionRepository provides operations for per-frame detections.
type DetectionRepository struct {
	db *sql.DB
}

// Detections returns the detection repository for this store.
func (s *Store) Detections() *DetectionRepository {
	return &DetectionRepository{db: s.db}
}

// CreateFrame inserts every detection of one frame, with its keypoints, in a
// single transaction. Assigned IDs are written back into dets.
func (r *DetectionRepository) CreateFrame(runID string, frameIndex int, dets []DetectionRecord) error {
	if len(dets) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	detStmt, err := tx.Prepare(
		`INSERT INTO detections (run_id, frame_index, label, score, x0, y0, x1, y1,
		 center_x, center_y, scale_x, scale_y)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer detStmt.Close()

	kpStmt, err := tx.Prepare(
		`INSERT INTO keypoints (detection_id, keypoint_index, x, y, score) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer kpStmt.Close()

	for i := range dets {
		d := &dets[i]
		d.RunID = runID
		d.FrameIndex = frameIndex

		res, err := detStmt.Exec(runID, frameIndex, d.Label, d.Score, d.X0, d.Y0, d.X1, d.Y1,
			d.CenterX, d.CenterY, d.ScaleX, d.ScaleY)
		if err != nil {
			return err
		}
		if d.ID, err = res.LastInsertId(); err != nil {
			return err
		}

		for _, kp := range d.Keypoints {
			if _, err := kpStmt.Exec(d.ID, kp.Index, kp.X, kp.Y, kp.Score); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// ListByRun retrieves every detection of a run in frame order, keypoints
// included.
func (r *DetectionRepository) ListByRun(runID string) ([]DetectionRecord, error) {
	rows, err := r.db.Query(
		`SELECT id, run_id, frame_index, label, score, x0, y0, x1, y1,
		 center_x, center_y, scale_x, scale_y
		 FROM detections
		 WHERE run_id = ?
		 ORDER BY frame_index, id`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dets []DetectionRecord
	index := make(map[int64]int)
	for rows.Next() {
		var d DetectionRecord
		if err := rows.Scan(&d.ID, &d.RunID, &d.FrameIndex, &d.Label, &d.Score,
			&d.X0, &d.Y0, &d.X1, &d.Y1, &d.CenterX, &d.CenterY, &d.ScaleX, &d.ScaleY); err != nil {
			return nil, err
		}
		index[d.ID] = len(dets)
		dets = append(dets, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if len(dets) == 0 {
		return dets, nil
	}

	kpRows, err := r.db.Query(
		`SELECT k.detection_id, k.keypoint_index, k.x, k.y, k.score
		 FROM keypoints k
		 JOIN detections d ON d.id = k.detection_id
		 WHERE d.run_id = ?
		 ORDER BY k.detection_id, k.keypoint_index`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer kpRows.Close()

	for kpRows.Next() {
		var detID int64
		var kp KeypointRecord
		if err := kpRows.Scan(&detID, &kp.Index, &kp.X, &kp.Y, &kp.Score); err != nil {
			return nil, err
		}
		if i, ok := index[detID]; ok {
			dets[i].Keypoints = append(dets[i].Keypoints, kp)
		}
	}

	if err := kpRows.Err(); err != nil {
		return nil, err
	}

	return dets, nil
}

// CountByRun returns how many detections a run stored.
func (r *DetectionRepository) CountByRun(runID string) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM detections WHERE run_id = ?`, runID).Scan(&n)
	return n, err
}
