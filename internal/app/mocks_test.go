package app

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/Amund211/lilypad/internal/domain"
)

// In-memory stand-ins for the repositories. They enforce the same uniqueness
// guarantees as the postgres schema.

type fakeSessionRepository struct {
	mu       sync.Mutex
	sessions map[string]domain.GameSession
	getErr   error

	// Units enqueued while saving land here once the save succeeds
	queue *fakeQueue
}

func newFakeSessionRepository(sessions ...domain.GameSession) *fakeSessionRepository {
	repo := &fakeSessionRepository{sessions: map[string]domain.GameSession{}, queue: &fakeQueue{}}
	for _, session := range sessions {
		repo.sessions[session.ID] = session
	}
	return repo
}

func (r *fakeSessionRepository) GetSession(ctx context.Context, id string) (domain.GameSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.getErr != nil {
		return domain.GameSession{}, r.getErr
	}
	session, ok := r.sessions[id]
	if !ok {
		return domain.GameSession{}, domain.ErrSessionNotFound
	}
	return session, nil
}

func (r *fakeSessionRepository) SaveSession(
	ctx context.Context,
	submission domain.GameSessionSubmission,
	onSaved domain.SessionSavedFunc,
) (*domain.GameSession, domain.GameSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var previous *domain.GameSession
	var current domain.GameSession
	for _, stored := range r.sessions {
		if stored.SessionID != submission.SessionID {
			continue
		}
		if err := submission.CheckOwnership(stored); err != nil {
			return nil, domain.GameSession{}, err
		}
		previous = &stored
		current = submission.ApplyTo(stored)
		break
	}
	if previous == nil {
		id := fmt.Sprintf("session-%d", len(r.sessions)+1)
		current = submission.ApplyTo(domain.GameSession{ID: id})
	}

	// Nothing is stored unless the hook succeeds, like a rolled back transaction
	staged := &stagedQueue{target: r.queue}
	if onSaved != nil {
		if err := onSaved(ctx, staged, previous, current); err != nil {
			return nil, domain.GameSession{}, err
		}
	}

	r.sessions[current.ID] = current
	staged.commit()
	return previous, current, nil
}

type stagedQueue struct {
	target *fakeQueue
	units  []domain.WorkUnit
}

func (q *stagedQueue) Enqueue(ctx context.Context, units ...domain.WorkUnit) ([]domain.WorkUnit, error) {
	q.target.mu.Lock()
	err := q.target.enqueueErr
	q.target.mu.Unlock()
	if err != nil {
		return nil, err
	}

	q.units = append(q.units, units...)
	return units, nil
}

func (q *stagedQueue) commit() {
	q.target.mu.Lock()
	defer q.target.mu.Unlock()

	q.target.store(q.units)
}

type fakeHighScoreRepository struct {
	mu         sync.Mutex
	highScores []domain.HighScore
}

func (r *fakeHighScoreRepository) FindOrCreate(ctx context.Context, gameSessionID string, score int64) (domain.HighScore, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, highScore := range r.highScores {
		if highScore.GameSessionID == gameSessionID && highScore.Score == score {
			return highScore, false, nil
		}
	}

	highScore := domain.HighScore{
		ID:            fmt.Sprintf("high-score-%d", len(r.highScores)+1),
		GameSessionID: gameSessionID,
		Score:         score,
	}
	r.highScores = append(r.highScores, highScore)
	return highScore, true, nil
}

type fakePlayerRepository struct {
	mu         sync.Mutex
	players    map[string]domain.Player
	aggregated map[string]bool

	aggregateErr error
	statsErr     error
}

func newFakePlayerRepository(players ...domain.Player) *fakePlayerRepository {
	repo := &fakePlayerRepository{
		players:    map[string]domain.Player{},
		aggregated: map[string]bool{},
	}
	for _, player := range players {
		repo.players[player.ID] = player
	}
	return repo
}

func (r *fakePlayerRepository) GetPlayer(ctx context.Context, playerID string) (domain.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	player, ok := r.players[playerID]
	if !ok {
		return domain.Player{}, domain.ErrPlayerNotFound
	}
	return player, nil
}

func (r *fakePlayerRepository) GetPlayerByUsername(ctx context.Context, username string) (domain.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, player := range r.players {
		if player.Username == username {
			return player, nil
		}
	}
	return domain.Player{}, domain.ErrPlayerNotFound
}

func (r *fakePlayerRepository) AggregateSession(ctx context.Context, playerID string, session domain.GameSession) (domain.AggregationResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.aggregateErr != nil {
		return domain.AggregationSkipped, r.aggregateErr
	}

	player, ok := r.players[playerID]
	if !ok {
		return domain.AggregationSkipped, domain.ErrPlayerNotFound
	}
	if r.aggregated[session.ID] {
		return domain.AggregationSkipped, nil
	}
	r.aggregated[session.ID] = true

	player.TotalScore += session.Score()
	player.GamesPlayed++
	player.LastPlayedAt = session.EndedAt
	r.players[playerID] = player
	return domain.AggregationApplied, nil
}

func (r *fakePlayerRepository) GetStats(ctx context.Context, playerID string) (domain.PlayerStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.statsErr != nil {
		return domain.PlayerStats{}, r.statsErr
	}
	player, ok := r.players[playerID]
	if !ok {
		return domain.PlayerStats{}, domain.ErrPlayerNotFound
	}
	return domain.PlayerStats{
		PlayerID:     player.ID,
		TotalScore:   player.TotalScore,
		GamesPlayed:  player.GamesPlayed,
		LastPlayedAt: player.LastPlayedAt,
	}, nil
}

type fakeAchievementRepository struct {
	mu           sync.Mutex
	achievements map[string]domain.Achievement
	earned       []domain.EarnedAchievement

	awardErr error
}

func newFakeAchievementRepository() *fakeAchievementRepository {
	return &fakeAchievementRepository{achievements: map[string]domain.Achievement{}}
}

func (r *fakeAchievementRepository) EarnedTypes(ctx context.Context, playerID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	types := []string{}
	for _, earned := range r.earned {
		if earned.PlayerID == playerID {
			types = append(types, earned.Achievement.AchievementType)
		}
	}
	return types, nil
}

func (r *fakeAchievementRepository) EnsureAchievement(ctx context.Context, achievement domain.Achievement) (domain.Achievement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if stored, ok := r.achievements[achievement.AchievementType]; ok {
		return stored, nil
	}
	achievement.ID = "achievement-" + achievement.AchievementType
	r.achievements[achievement.AchievementType] = achievement
	return achievement, nil
}

func (r *fakeAchievementRepository) Award(ctx context.Context, playerID string, achievementID string, gameSessionID *string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.awardErr != nil {
		return false, r.awardErr
	}

	for _, earned := range r.earned {
		if earned.PlayerID == playerID && earned.Achievement.ID == achievementID {
			return false, nil
		}
	}

	for _, achievement := range r.achievements {
		if achievement.ID == achievementID {
			r.earned = append(r.earned, domain.EarnedAchievement{
				Achievement:   achievement,
				PlayerID:      playerID,
				GameSessionID: gameSessionID,
			})
			return true, nil
		}
	}
	return false, fmt.Errorf("unknown achievement %s", achievementID)
}

func (r *fakeAchievementRepository) earnedTypes(playerID string) []string {
	types, _ := r.EarnedTypes(context.Background(), playerID)
	slices.Sort(types)
	return types
}

type fakeQueue struct {
	mu    sync.Mutex
	units []domain.WorkUnit

	enqueueErr error
}

func (q *fakeQueue) Enqueue(ctx context.Context, units ...domain.WorkUnit) ([]domain.WorkUnit, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.enqueueErr != nil {
		return nil, q.enqueueErr
	}

	return q.store(units), nil
}

// store must be called with mu held
func (q *fakeQueue) store(units []domain.WorkUnit) []domain.WorkUnit {
	stored := make([]domain.WorkUnit, 0, len(units))
	for _, unit := range units {
		unit.ID = fmt.Sprintf("unit-%d", len(q.units)+1)
		q.units = append(q.units, unit)
		stored = append(stored, unit)
	}
	return stored
}

func (q *fakeQueue) kinds() []domain.WorkKind {
	q.mu.Lock()
	defer q.mu.Unlock()

	kinds := make([]domain.WorkKind, 0, len(q.units))
	for _, unit := range q.units {
		kinds = append(kinds, unit.Kind)
	}
	return kinds
}
