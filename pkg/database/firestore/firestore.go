// Package firestore keeps the update marker, user history and votes in Cloud
// Firestore. Collections are named after a resource prefix:
//
//	{prefix}_config/current_config   last_resume_update
//	{prefix}_users/{user}            user_id, first_login, interactions[]
//	{prefix}_votes/{backend}         llm, up, down, submissions[]
package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/gtonic/resumebot/pkg/history"
	"github.com/gtonic/resumebot/pkg/marker"
	"github.com/gtonic/resumebot/pkg/vote"
)

var (
	_ marker.Provider  = &Database{}
	_ history.Provider = &Database{}
	_ vote.Provider    = &Database{}
)

const (
	DefaultPrefix = "skb"

	configDocument = "current_config"
	markerField    = "last_resume_update"
)

type Database struct {
	client *firestore.Client

	prefix string
}

type Option func(*Database)

func WithPrefix(prefix string) Option {
	return func(d *Database) {
		d.prefix = prefix
	}
}

// New connects to the given project. FIRESTORE_EMULATOR_HOST is honored by
// the client library.
func New(ctx context.Context, project, database string, opts []option.ClientOption, options ...Option) (*Database, error) {
	if project == "" {
		return nil, errors.New("missing project")
	}

	if database == "" {
		database = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, project, database, opts...)

	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	d := &Database{
		client: client,
		prefix: DefaultPrefix,
	}

	for _, option := range options {
		option(d)
	}

	return d, nil
}

func (d *Database) Close() error {
	return d.client.Close()
}

func (d *Database) collection(name string) *firestore.CollectionRef {
	return d.client.Collection(d.prefix + "_" + name)
}

func (d *Database) Get(ctx context.Context) (*time.Time, error) {
	snap, err := d.collection("config").Doc(configDocument).Get(ctx)

	if status.Code(err) == codes.NotFound {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("reading marker: %w", err)
	}

	switch v := snap.Data()[markerField].(type) {
	case time.Time:
		return &v, nil

	case nil:
		return nil, nil

	default:
		return nil, fmt.Errorf("unexpected marker type %T", v)
	}
}

// storedTime rounds t to the microsecond precision of Firestore timestamps.
func storedTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func (d *Database) Set(ctx context.Context, t time.Time) (time.Time, error) {
	t = storedTime(t)

	_, err := d.collection("config").Doc(configDocument).Set(ctx, map[string]any{
		markerField: t,
	}, firestore.MergeAll)

	if err != nil {
		return time.Time{}, fmt.Errorf("writing marker: %w", err)
	}

	return t, nil
}

func (d *Database) Clear(ctx context.Context) error {
	_, err := d.collection("config").Doc(configDocument).Set(ctx, map[string]any{
		markerField: nil,
	}, firestore.MergeAll)

	if err != nil {
		return fmt.Errorf("clearing marker: %w", err)
	}

	return nil
}

type userDocument struct {
	UserID     string    `firestore:"user_id"`
	FirstLogin time.Time `firestore:"first_login"`

	Interactions []interactionDocument `firestore:"interactions"`
}

type interactionDocument struct {
	ID string `firestore:"id"`

	Backend string `firestore:"llm_backend"`

	Question string `firestore:"question"`
	Answer   string `firestore:"answer"`

	Failed bool `firestore:"failed"`

	Timestamp time.Time `firestore:"timestamp"`
}

func (d *Database) Record(ctx context.Context, userID string, interaction history.Interaction) error {
	if interaction.ID == "" {
		interaction.ID = uuid.NewString()
	}

	if interaction.Timestamp.IsZero() {
		interaction.Timestamp = time.Now().UTC()
	}

	ref := d.collection("users").Doc(userID)

	if err := createIfMissing(ctx, ref, map[string]any{
		"user_id":     userID,
		"first_login": interaction.Timestamp,
	}); err != nil {
		return fmt.Errorf("creating user: %w", err)
	}

	_, err := ref.Set(ctx, map[string]any{
		"interactions": firestore.ArrayUnion(map[string]any{
			"id":          interaction.ID,
			"llm_backend": interaction.Backend,
			"question":    interaction.Question,
			"answer":      interaction.Answer,
			"failed":      interaction.Failed,
			"timestamp":   interaction.Timestamp,
		}),
	}, firestore.MergeAll)

	if err != nil {
		return fmt.Errorf("saving interaction: %w", err)
	}

	return nil
}

func (d *Database) User(ctx context.Context, userID string) (*history.User, error) {
	snap, err := d.collection("users").Doc(userID).Get(ctx)

	if status.Code(err) == codes.NotFound {
		return nil, history.ErrNotFound
	}

	if err != nil {
		return nil, err
	}

	var doc userDocument

	if err := snap.DataTo(&doc); err != nil {
		return nil, err
	}

	u := &history.User{
		ID:         userID,
		FirstLogin: doc.FirstLogin,
	}

	for _, i := range doc.Interactions {
		u.Interactions = append(u.Interactions, history.Interaction{
			ID:        i.ID,
			Backend:   i.Backend,
			Question:  i.Question,
			Answer:    i.Answer,
			Failed:    i.Failed,
			Timestamp: i.Timestamp,
		})
	}

	return u, nil
}

type voteDocument struct {
	LLM string `firestore:"llm"`

	Up   int `firestore:"up"`
	Down int `firestore:"down"`
}

func (d *Database) Submit(ctx context.Context, v vote.Vote) error {
	if v.Timestamp.IsZero() {
		v.Timestamp = time.Now().UTC()
	}

	ref := d.collection("votes").Doc(v.Backend)

	if err := createIfMissing(ctx, ref, map[string]any{
		"llm":  v.Backend,
		"up":   0,
		"down": 0,
	}); err != nil {
		return fmt.Errorf("creating vote document: %w", err)
	}

	up, down := 0, 0

	if v.Upvoted {
		up = 1
	} else {
		down = -1
	}

	_, err := ref.Set(ctx, map[string]any{
		"submissions": firestore.ArrayUnion(map[string]any{
			"user_id":   v.UserID,
			"question":  v.Question,
			"answer":    v.Answer,
			"upvoted":   v.Upvoted,
			"timestamp": v.Timestamp,
		}),
		"up":   firestore.Increment(up),
		"down": firestore.Increment(down),
	}, firestore.MergeAll)

	if err != nil {
		return fmt.Errorf("submitting vote: %w", err)
	}

	return nil
}

func (d *Database) Stats(ctx context.Context) ([]vote.Stats, error) {
	iter := d.collection("votes").OrderBy("llm", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var result []vote.Stats

	for {
		snap, err := iter.Next()

		if errors.Is(err, iterator.Done) {
			break
		}

		if err != nil {
			return nil, err
		}

		var doc voteDocument

		if err := snap.DataTo(&doc); err != nil {
			return nil, err
		}

		result = append(result, vote.Stats{
			Backend: doc.LLM,
			Up:      doc.Up,
			Down:    doc.Down,
		})
	}

	return result, nil
}

func createIfMissing(ctx context.Context, ref *firestore.DocumentRef, data map[string]any) error {
	_, err := ref.Create(ctx, data)

	if status.Code(err) == codes.AlreadyExists {
		return nil
	}

	return err
}
