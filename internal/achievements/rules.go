package achievements

import "github.com/Amund211/lilypad/internal/domain"

const (
	TypeLilyCollector  = "lily_collector"
	TypeHeartHoarder   = "heart_hoarder"
	TypeObstacleMaster = "obstacle_master"
	TypeSpeedDemon     = "speed_demon"
	TypeMarathonRunner = "marathon_runner"
)

var LilyCollector = Rule{
	Type:         TypeLilyCollector,
	Name:         "Lily Collector",
	Points:       10,
	Requirements: "Collect 10 lilies in a single game",
	Satisfied: func(session domain.GameSession) bool {
		return session.Lilies() >= 10
	},
}

var HeartHoarder = Rule{
	Type:         TypeHeartHoarder,
	Name:         "Heart Hoarder",
	Points:       10,
	Requirements: "Collect 20 hearts in a single game",
	Satisfied: func(session domain.GameSession) bool {
		return session.Hearts() >= 20
	},
}

var ObstacleMaster = Rule{
	Type:         TypeObstacleMaster,
	Name:         "Obstacle Master",
	Points:       25,
	Requirements: "Avoid 50 obstacles in a single game",
	Satisfied: func(session domain.GameSession) bool {
		return session.Obstacles() >= 50
	},
}

var SpeedDemon = Rule{
	Type:         TypeSpeedDemon,
	Name:         "Speed Demon",
	Points:       25,
	Requirements: "Reach a speed of 15 in a single game",
	Satisfied: func(session domain.GameSession) bool {
		return session.MaxSpeed() >= 15
	},
}

var MarathonRunner = Rule{
	Type:         TypeMarathonRunner,
	Name:         "Marathon Runner",
	Points:       50,
	Requirements: "Play a single game for 5 minutes",
	Satisfied: func(session domain.GameSession) bool {
		return session.Duration() >= 300
	},
}

func DefaultCatalog() *Catalog {
	return MustNewCatalog(
		LilyCollector,
		HeartHoarder,
		ObstacleMaster,
		SpeedDemon,
		MarathonRunner,
	)
}
