package services

import (
	"sync"

	"github.com/Dosada05/club-coordinator/models"
)

// ActivityStatus - строка таблицы управления капитанами.
type ActivityStatus struct {
	models.EventActivity
	PlayerCount       *int                 `json:"player_count"`
	LoadingPlayers    bool                 `json:"loading_players"`
	HasMinimumPlayers bool                 `json:"has_minimum_players"`
	Captain           *models.EnrolledUser `json:"captain,omitempty"`
	CaptaincyID       int                  `json:"captaincy_id,omitempty"`
}

type BoardSnapshot struct {
	Loaded     bool             `json:"loaded"`
	Loading    bool             `json:"loading"`
	Activities []ActivityStatus `json:"activities"`
}

// CaptainBoard хранит частично загруженное состояние: активности, число игроков,
// флаги загрузки и текущих капитанов. Каждая перезагрузка увеличивает generation,
// ответы от устаревшей загрузки отбрасываются.
type CaptainBoard struct {
	mu           sync.RWMutex
	generation   uint64
	loaded       bool
	activities   []models.EventActivity
	byID         map[int]models.EventActivity
	playerCounts map[int]int
	loading      map[int]struct{}
	captains     map[int]models.EnrolledUser
	captainIDs   map[int]int
	captainRev   map[int]uint64
}

func NewCaptainBoard() *CaptainBoard {
	b := &CaptainBoard{}
	b.resetLocked(nil)
	return b
}

func (b *CaptainBoard) resetLocked(activities []models.EventActivity) {
	b.activities = activities
	b.byID = make(map[int]models.EventActivity, len(activities))
	b.playerCounts = make(map[int]int, len(activities))
	b.loading = make(map[int]struct{}, len(activities))
	b.captains = make(map[int]models.EnrolledUser)
	b.captainIDs = make(map[int]int)
	b.captainRev = make(map[int]uint64)
	for _, ea := range activities {
		b.byID[ea.ID] = ea
		b.loading[ea.ID] = struct{}{}
	}
}

// Reset заменяет список активностей, помечает все как загружающиеся
// и возвращает номер нового поколения.
func (b *CaptainBoard) Reset(activities []models.EventActivity) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.generation++
	b.loaded = true
	b.resetLocked(activities)
	return b.generation
}

func (b *CaptainBoard) IsCurrent(gen uint64) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.generation == gen
}

func (b *CaptainBoard) Loaded() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.loaded
}

// SetPlayerCounts записывает число игроков и снимает флаг загрузки.
func (b *CaptainBoard) SetPlayerCounts(gen uint64, counts map[int]int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.generation {
		return false
	}
	for id, n := range counts {
		b.playerCounts[id] = n
		delete(b.loading, id)
	}
	return true
}

func (b *CaptainBoard) SetCaptainIDs(gen uint64, ids map[int]int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.generation {
		return false
	}
	for eaID, id := range ids {
		if _, ok := b.byID[eaID]; ok {
			b.captainIDs[eaID] = id
		}
	}
	return true
}

func (b *CaptainBoard) SetCaptainDetails(gen uint64, captains map[int]models.EnrolledUser) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.generation {
		return false
	}
	for eaID, user := range captains {
		b.captains[eaID] = user
	}
	return true
}

// SetCaptain фиксирует назначение. captaincyID == 0 оставляет прежний id.
func (b *CaptainBoard) SetCaptain(eaID int, user models.EnrolledUser, captaincyID int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.captains[eaID] = user
	if captaincyID != 0 {
		b.captainIDs[eaID] = captaincyID
	}
	b.captainRev[eaID]++
}

func (b *CaptainBoard) RemoveCaptain(eaID int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.captains, eaID)
	delete(b.captainIDs, eaID)
	b.captainRev[eaID]++
}

// CaptainRevision растёт при каждом изменении капитана активности.
func (b *CaptainBoard) CaptainRevision(eaID int) uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.captainRev[eaID]
}

// ApplyCaptainRefresh применяет перечитанного капитана, если с момента rev ничего не менялось.
func (b *CaptainBoard) ApplyCaptainRefresh(eaID int, rev uint64, user *models.EnrolledUser) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.captainRev[eaID] != rev {
		return false
	}
	if user == nil {
		delete(b.captains, eaID)
		delete(b.captainIDs, eaID)
	} else {
		b.captains[eaID] = *user
	}
	return true
}

func (b *CaptainBoard) Activity(eaID int) (models.EventActivity, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ea, ok := b.byID[eaID]
	return ea, ok
}

// PlayerCount возвращает число игроков; ok == false, пока оно неизвестно.
func (b *CaptainBoard) PlayerCount(eaID int) (int, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if _, loading := b.loading[eaID]; loading {
		return 0, false
	}
	n, ok := b.playerCounts[eaID]
	return n, ok
}

// Captain возвращает текущего капитана и id записи капитанства.
func (b *CaptainBoard) Captain(eaID int) (user models.EnrolledUser, hasDetails bool, captaincyID int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	user, hasDetails = b.captains[eaID]
	return user, hasDetails, b.captainIDs[eaID]
}

// HasMinimumPlayers: число игроков загружено и не меньше минимума.
func (b *CaptainBoard) HasMinimumPlayers(eaID int) bool {
	ea, ok := b.Activity(eaID)
	if !ok {
		return false
	}
	n, known := b.PlayerCount(eaID)
	return known && n >= ea.MinPlayers
}

func (b *CaptainBoard) Snapshot() BoardSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	snap := BoardSnapshot{
		Loaded:     b.loaded,
		Loading:    len(b.loading) > 0,
		Activities: make([]ActivityStatus, 0, len(b.activities)),
	}
	for _, ea := range b.activities {
		status := ActivityStatus{EventActivity: ea}
		if _, loading := b.loading[ea.ID]; loading {
			status.LoadingPlayers = true
		} else if n, ok := b.playerCounts[ea.ID]; ok {
			count := n
			status.PlayerCount = &count
			status.HasMinimumPlayers = n >= ea.MinPlayers
		}
		if captain, ok := b.captains[ea.ID]; ok {
			c := captain
			status.Captain = &c
		}
		status.CaptaincyID = b.captainIDs[ea.ID]
		snap.Activities = append(snap.Activities, status)
	}
	return snap
}
