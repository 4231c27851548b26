package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"reunite/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Storage is the persistence contract the core services depend on. The only
// concurrency primitives it promises are atomic single-row conditional
// updates and atomic set add/remove on array columns; there are no
// cross-document transactions.
type Storage interface {
	// Volunteers
	SaveVolunteer(v *models.Volunteer) error
	GetVolunteerByID(id string) (*models.Volunteer, error)
	GetVolunteerByEmail(email string) (*models.Volunteer, error)
	ListVolunteersByStatus(status string) ([]models.Volunteer, error)
	DeleteVolunteer(id string) error
	TransitionVolunteerStatus(id, from string, updates map[string]interface{}) (bool, error)

	// Families
	SaveFamily(f *models.Family) error
	GetFamilyByID(id string) (*models.Family, error)
	GetFamilyByEmail(email string) (*models.Family, error)
	ListFamiliesByStatus(status string) ([]models.Family, error)
	DeleteFamily(id string) error
	TransitionFamilyStatus(id, from string, updates map[string]interface{}) (bool, error)

	// Admins
	SaveAdmin(a *models.Admin) error
	GetAdminByEmail(email string) (*models.Admin, error)

	// Camps and the assignment relation
	SaveCamp(c *models.Camp) error
	GetCampByID(id string) (*models.Camp, error)
	ListCamps() ([]models.Camp, error)
	DeleteCamp(id string) error
	AddVolunteerToCampSet(campID, volunteerID string) error
	RemoveVolunteerFromCampSet(campID, volunteerID string) error
	SetVolunteerCamp(volunteerID string, campID *string) error
	ClearCampAssignments(campID string) error

	// Search requests
	SaveSearchRequest(r *models.SearchRequest) error
	GetSearchRequestByID(id string) (*models.SearchRequest, error)
	ListSearchRequestsByStatus(statuses ...string) ([]models.SearchRequest, error)
	TransitionSearchRequestStatus(id, from string, updates map[string]interface{}) (bool, error)
	DeleteSearchRequest(id string) error

	// Sightings
	SaveSighting(sg *models.Sighting) error
	GetSightingByID(id string) (*models.Sighting, error)
	ListSightingsByStatus(statuses ...string) ([]models.Sighting, error)
	TransitionSightingStatus(id, from string, updates map[string]interface{}) (bool, error)
	DeleteSighting(id string) error

	// Match candidates
	UpsertMatchCandidate(c *models.MatchCandidate) error
	GetMatchCandidate(searchRequestID, sightingID string) (*models.MatchCandidate, error)
	ListCandidatesForSearch(searchRequestID string) ([]models.MatchCandidate, error)
	SetCandidateConfirmed(searchRequestID, sightingID string, confirmed bool) error
	RetireSiblingCandidates(sightingID, keepSearchRequestID string) error

	// Dashboard counts
	CountVolunteers(status string) (int64, error)
	CountFamilies(status string) (int64, error)
	CountCamps() (int64, error)
	CountSearchRequests(status string) (int64, error)
	CountSightings(status string) (int64, error)

	// Sweep backlog and event fan-out (Redis)
	AddSweepBacklog(req models.SweepRequest) error
	RemoveSweepBacklog(req models.SweepRequest) error
	ListSweepBacklog() ([]models.SweepRequest, error)
	PublishMatchEvent(ev models.MatchEvent) error
}

const (
	sweepBacklogKey  = "match:sweep_backlog"
	matchEventsTopic = "match:events"
)

type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Log   *logrus.Logger
	Ctx   context.Context
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client, log *logrus.Logger) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Log:   log,
		Ctx:   context.Background(),
	}
}

// transition performs a compare-and-set status update: the row is updated
// only if it still holds the expected status. Returns false when the row is
// missing or no longer in that status; callers tell the two apart.
func (s *Service) transition(model interface{}, id, from string, updates map[string]interface{}) (bool, error) {
	res := s.DB.Model(model).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// --- Volunteers ---

func (s *Service) SaveVolunteer(v *models.Volunteer) error {
	return s.DB.Save(v).Error
}

func (s *Service) GetVolunteerByID(id string) (*models.Volunteer, error) {
	var v models.Volunteer
	err := s.DB.First(&v, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *Service) GetVolunteerByEmail(email string) (*models.Volunteer, error) {
	var v models.Volunteer
	err := s.DB.First(&v, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ListVolunteersByStatus returns volunteers in the given status, newest
// first. An empty status returns everyone.
func (s *Service) ListVolunteersByStatus(status string) ([]models.Volunteer, error) {
	var vols []models.Volunteer
	q := s.DB.Order("created_at desc")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Find(&vols).Error; err != nil {
		return nil, err
	}
	return vols, nil
}

func (s *Service) DeleteVolunteer(id string) error {
	return s.DB.Delete(&models.Volunteer{}, "id = ?", id).Error
}

func (s *Service) TransitionVolunteerStatus(id, from string, updates map[string]interface{}) (bool, error) {
	return s.transition(&models.Volunteer{}, id, from, updates)
}

// --- Families ---

func (s *Service) SaveFamily(f *models.Family) error {
	return s.DB.Save(f).Error
}

func (s *Service) GetFamilyByID(id string) (*models.Family, error) {
	var f models.Family
	err := s.DB.First(&f, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *Service) GetFamilyByEmail(email string) (*models.Family, error) {
	var f models.Family
	err := s.DB.First(&f, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *Service) ListFamiliesByStatus(status string) ([]models.Family, error) {
	var fams []models.Family
	q := s.DB.Order("created_at desc")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Find(&fams).Error; err != nil {
		return nil, err
	}
	return fams, nil
}

func (s *Service) DeleteFamily(id string) error {
	return s.DB.Delete(&models.Family{}, "id = ?", id).Error
}

func (s *Service) TransitionFamilyStatus(id, from string, updates map[string]interface{}) (bool, error) {
	return s.transition(&models.Family{}, id, from, updates)
}

// --- Admins ---

func (s *Service) SaveAdmin(a *models.Admin) error {
	return s.DB.Save(a).Error
}

func (s *Service) GetAdminByEmail(email string) (*models.Admin, error) {
	var a models.Admin
	err := s.DB.First(&a, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// --- Camps ---

func (s *Service) SaveCamp(c *models.Camp) error {
	return s.DB.Save(c).Error
}

func (s *Service) GetCampByID(id string) (*models.Camp, error) {
	var c models.Camp
	err := s.DB.First(&c, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Service) ListCamps() ([]models.Camp, error) {
	var camps []models.Camp
	if err := s.DB.Order("created_at desc").Find(&camps).Error; err != nil {
		return nil, err
	}
	return camps, nil
}

func (s *Service) DeleteCamp(id string) error {
	return s.DB.Delete(&models.Camp{}, "id = ?", id).Error
}

// AddVolunteerToCampSet atomically appends the volunteer to the camp's
// member array unless it is already present. Re-adding is a no-op, which is
// what makes assignment idempotent.
func (s *Service) AddVolunteerToCampSet(campID, volunteerID string) error {
	return s.DB.Exec(`
		UPDATE camps
		SET volunteers_assigned = array_append(COALESCE(volunteers_assigned, '{}'), ?)
		WHERE id = ?
		  AND NOT (? = ANY(COALESCE(volunteers_assigned, '{}')))`,
		volunteerID, campID, volunteerID,
	).Error
}

// RemoveVolunteerFromCampSet atomically removes the volunteer from the
// camp's member array. Removing an absent member is a no-op.
func (s *Service) RemoveVolunteerFromCampSet(campID, volunteerID string) error {
	return s.DB.Exec(`
		UPDATE camps
		SET volunteers_assigned = array_remove(volunteers_assigned, ?)
		WHERE id = ?`,
		volunteerID, campID,
	).Error
}

// SetVolunteerCamp writes the volunteer-side back-reference. A nil campID
// clears it.
func (s *Service) SetVolunteerCamp(volunteerID string, campID *string) error {
	return s.DB.Model(&models.Volunteer{}).
		Where("id = ?", volunteerID).
		Update("assigned_camp_id", campID).Error
}

// ClearCampAssignments nulls the back-reference of every volunteer assigned
// to the camp. Used before deleting a camp so no volunteer keeps a dangling
// reference.
func (s *Service) ClearCampAssignments(campID string) error {
	return s.DB.Model(&models.Volunteer{}).
		Where("assigned_camp_id = ?", campID).
		Update("assigned_camp_id", nil).Error
}

// --- Search requests ---

func (s *Service) SaveSearchRequest(r *models.SearchRequest) error {
	if r.Status == "" {
		r.Status = models.SearchPending
	}
	return s.DB.Save(r).Error
}

func (s *Service) GetSearchRequestByID(id string) (*models.SearchRequest, error) {
	var r models.SearchRequest
	err := s.DB.First(&r, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Service) ListSearchRequestsByStatus(statuses ...string) ([]models.SearchRequest, error) {
	var reqs []models.SearchRequest
	q := s.DB.Order("created_at desc")
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	if err := q.Find(&reqs).Error; err != nil {
		return nil, err
	}
	return reqs, nil
}

func (s *Service) TransitionSearchRequestStatus(id, from string, updates map[string]interface{}) (bool, error) {
	return s.transition(&models.SearchRequest{}, id, from, updates)
}

// DeleteSearchRequest removes the request and cascades to its candidates.
func (s *Service) DeleteSearchRequest(id string) error {
	if err := s.DB.Delete(&models.MatchCandidate{}, "search_request_id = ?", id).Error; err != nil {
		return err
	}
	return s.DB.Delete(&models.SearchRequest{}, "id = ?", id).Error
}

// --- Sightings ---

func (s *Service) SaveSighting(sg *models.Sighting) error {
	if sg.Status == "" {
		sg.Status = models.SightingUnclaimed
	}
	return s.DB.Save(sg).Error
}

func (s *Service) GetSightingByID(id string) (*models.Sighting, error) {
	var sg models.Sighting
	err := s.DB.First(&sg, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sg, nil
}

func (s *Service) ListSightingsByStatus(statuses ...string) ([]models.Sighting, error) {
	var sightings []models.Sighting
	q := s.DB.Order("created_at desc")
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	if err := q.Find(&sightings).Error; err != nil {
		return nil, err
	}
	return sightings, nil
}

func (s *Service) TransitionSightingStatus(id, from string, updates map[string]interface{}) (bool, error) {
	return s.transition(&models.Sighting{}, id, from, updates)
}

// DeleteSighting removes the sighting and cascades to its candidates.
func (s *Service) DeleteSighting(id string) error {
	if err := s.DB.Delete(&models.MatchCandidate{}, "sighting_id = ?", id).Error; err != nil {
		return err
	}
	return s.DB.Delete(&models.Sighting{}, "id = ?", id).Error
}

// --- Match candidates ---

// UpsertMatchCandidate inserts the candidate or, when the pair already
// exists, overwrites its score and computation time. The (search_request_id,
// sighting_id) unique index is what prevents duplicates under concurrent
// sweeps.
func (s *Service) UpsertMatchCandidate(c *models.MatchCandidate) error {
	return s.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "search_request_id"}, {Name: "sighting_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"score":       c.Score,
			"computed_at": c.ComputedAt,
		}),
	}).Create(c).Error
}

func (s *Service) GetMatchCandidate(searchRequestID, sightingID string) (*models.MatchCandidate, error) {
	var c models.MatchCandidate
	err := s.DB.First(&c, "search_request_id = ? AND sighting_id = ?", searchRequestID, sightingID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCandidatesForSearch returns the request's candidates, highest score
// first.
func (s *Service) ListCandidatesForSearch(searchRequestID string) ([]models.MatchCandidate, error) {
	var candidates []models.MatchCandidate
	err := s.DB.Where("search_request_id = ?", searchRequestID).
		Order("score desc").
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}
	return candidates, nil
}

func (s *Service) SetCandidateConfirmed(searchRequestID, sightingID string, confirmed bool) error {
	return s.DB.Model(&models.MatchCandidate{}).
		Where("search_request_id = ? AND sighting_id = ?", searchRequestID, sightingID).
		Update("confirmed", confirmed).Error
}

// RetireSiblingCandidates marks every other candidate referencing the
// sighting as explicitly not confirmed. Rows are kept, not deleted, so the
// "also considered" history stays visible.
func (s *Service) RetireSiblingCandidates(sightingID, keepSearchRequestID string) error {
	return s.DB.Model(&models.MatchCandidate{}).
		Where("sighting_id = ? AND search_request_id <> ?", sightingID, keepSearchRequestID).
		Update("confirmed", false).Error
}

// --- Dashboard counts ---

func (s *Service) CountVolunteers(status string) (int64, error) {
	return s.count(&models.Volunteer{}, status)
}

func (s *Service) CountFamilies(status string) (int64, error) {
	return s.count(&models.Family{}, status)
}

func (s *Service) CountCamps() (int64, error) {
	return s.count(&models.Camp{}, "")
}

func (s *Service) CountSearchRequests(status string) (int64, error) {
	return s.count(&models.SearchRequest{}, status)
}

func (s *Service) CountSightings(status string) (int64, error) {
	return s.count(&models.Sighting{}, status)
}

func (s *Service) count(model interface{}, status string) (int64, error) {
	var n int64
	q := s.DB.Model(model)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// --- Sweep backlog (Redis) ---

func sweepMember(req models.SweepRequest) string {
	return req.Kind + "|" + req.RecordID
}

// AddSweepBacklog records a pending sweep in a Redis set so a restarted
// engine can resume work that never left the in-process channel.
func (s *Service) AddSweepBacklog(req models.SweepRequest) error {
	return s.Redis.SAdd(s.Ctx, sweepBacklogKey, sweepMember(req)).Err()
}

func (s *Service) RemoveSweepBacklog(req models.SweepRequest) error {
	return s.Redis.SRem(s.Ctx, sweepBacklogKey, sweepMember(req)).Err()
}

func (s *Service) ListSweepBacklog() ([]models.SweepRequest, error) {
	members, err := s.Redis.SMembers(s.Ctx, sweepBacklogKey).Result()
	if err != nil {
		return nil, err
	}
	reqs := make([]models.SweepRequest, 0, len(members))
	for _, m := range members {
		kind, id, ok := strings.Cut(m, "|")
		if !ok {
			s.Log.WithField("member", m).Warn("dropping malformed sweep backlog entry")
			s.Redis.SRem(s.Ctx, sweepBacklogKey, m)
			continue
		}
		reqs = append(reqs, models.SweepRequest{Kind: kind, RecordID: id})
	}
	return reqs, nil
}

// --- Match events (Redis pub/sub) ---

// PublishMatchEvent broadcasts the event to every subscriber (live admin
// feed, Telegram notifier).
func (s *Service) PublishMatchEvent(ev models.MatchEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal match event: %w", err)
	}
	return s.Redis.Publish(s.Ctx, matchEventsTopic, payload).Err()
}

// SubscribeMatchEvents subscribes to the match event topic. Not part of the
// Storage interface; consumers that need it hold a *Service.
func (s *Service) SubscribeMatchEvents() *redis.PubSub {
	return s.Redis.Subscribe(s.Ctx, matchEventsTopic)
}
