package reporting

import (
	"context"
	"maps"
	"time"
)

type reportingMetaContextKey struct{}

// ReportingMeta is attached to every error reported from a context
type ReportingMeta struct {
	tags      map[string]string
	extras    map[string]string
	playerID  string
	startedAt time.Time
}

func MetaFromContext(ctx context.Context) ReportingMeta {
	meta, ok := ctx.Value(reportingMetaContextKey{}).(ReportingMeta)
	if !ok {
		return ReportingMeta{
			tags:   make(map[string]string),
			extras: make(map[string]string),
		}
	}
	return ReportingMeta{
		tags:      maps.Clone(meta.tags),
		extras:    maps.Clone(meta.extras),
		playerID:  meta.playerID,
		startedAt: meta.startedAt,
	}
}

func (m ReportingMeta) Tags() map[string]string {
	return maps.Clone(m.tags)
}

func (m ReportingMeta) Extras() map[string]string {
	return maps.Clone(m.extras)
}

func (m ReportingMeta) PlayerID() string {
	return m.playerID
}

func addMetaToContext(ctx context.Context, meta ReportingMeta) context.Context {
	return context.WithValue(ctx, reportingMetaContextKey{}, meta)
}

func SetStartedAtInContext(ctx context.Context, startedAt time.Time) context.Context {
	meta := MetaFromContext(ctx)
	meta.startedAt = startedAt

	return addMetaToContext(ctx, meta)
}

func AddExtrasToContext(ctx context.Context, extras map[string]string) context.Context {
	meta := MetaFromContext(ctx)
	maps.Copy(meta.extras, extras)

	return addMetaToContext(ctx, meta)
}

func AddTagsToContext(ctx context.Context, tags map[string]string) context.Context {
	meta := MetaFromContext(ctx)
	maps.Copy(meta.tags, tags)

	return addMetaToContext(ctx, meta)
}

// SetPlayerIDInContext sets the player reported as the sentry user
func SetPlayerIDInContext(ctx context.Context, playerID string) context.Context {
	meta := MetaFromContext(ctx)
	meta.playerID = playerID

	return addMetaToContext(ctx, meta)
}
