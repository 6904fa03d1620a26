package services

import (
	"errors"
	"io"

	"github.com/fyrsmithlabs/tutord/internal/chat"
	"github.com/fyrsmithlabs/tutord/internal/course"
	"github.com/fyrsmithlabs/tutord/internal/embeddings"
	"github.com/fyrsmithlabs/tutord/internal/index"
	"github.com/fyrsmithlabs/tutord/internal/ingest"
	"github.com/fyrsmithlabs/tutord/internal/keywords"
	"github.com/fyrsmithlabs/tutord/internal/llm"
	"github.com/fyrsmithlabs/tutord/internal/outline"
	"github.com/fyrsmithlabs/tutord/internal/quiz"
	"github.com/fyrsmithlabs/tutord/internal/session"
)

// Registry provides access to all tutord services.
// Use accessor methods to retrieve individual services.
type Registry interface {
	Session() *session.Service
	LLM() *llm.Service
	Embedder() embeddings.Provider
	Ingest() *ingest.Service
	Vector() index.VectorStore
	Tree() *index.TreeIndex
	Keywords() *keywords.Service
	Outline() *outline.Service
	Course() *course.Service
	Runner() *course.Runner
	Quiz() *quiz.Service
	Chat() *chat.Service
	Readier() *Readier

	// Close releases held resources, such as a loaded local
	// embedding model or a remote vector store connection.
	Close() error
}

// Options configures the registry with service instances.
type Options struct {
	Session  *session.Service
	LLM      *llm.Service
	Embedder embeddings.Provider
	Ingest   *ingest.Service
	Vector   index.VectorStore
	Tree     *index.TreeIndex
	Keywords *keywords.Service
	Outline  *outline.Service
	Course   *course.Service
	Runner   *course.Runner
	Quiz     *quiz.Service
	Chat     *chat.Service
	Readier  *Readier
}

// registry is the concrete implementation of Registry.
type registry struct {
	session  *session.Service
	llm      *llm.Service
	embedder embeddings.Provider
	ingest   *ingest.Service
	vector   index.VectorStore
	tree     *index.TreeIndex
	keywords *keywords.Service
	outline  *outline.Service
	course   *course.Service
	runner   *course.Runner
	quiz     *quiz.Service
	chat     *chat.Service
	readier  *Readier
}

// NewRegistry creates a new service registry.
func NewRegistry(opts Options) Registry {
	return &registry{
		session:  opts.Session,
		llm:      opts.LLM,
		embedder: opts.Embedder,
		ingest:   opts.Ingest,
		vector:   opts.Vector,
		tree:     opts.Tree,
		keywords: opts.Keywords,
		outline:  opts.Outline,
		course:   opts.Course,
		runner:   opts.Runner,
		quiz:     opts.Quiz,
		chat:     opts.Chat,
		readier:  opts.Readier,
	}
}

func (r *registry) Session() *session.Service     { return r.session }
func (r *registry) LLM() *llm.Service             { return r.llm }
func (r *registry) Embedder() embeddings.Provider { return r.embedder }
func (r *registry) Ingest() *ingest.Service       { return r.ingest }
func (r *registry) Vector() index.VectorStore     { return r.vector }
func (r *registry) Tree() *index.TreeIndex        { return r.tree }
func (r *registry) Keywords() *keywords.Service   { return r.keywords }
func (r *registry) Outline() *outline.Service     { return r.outline }
func (r *registry) Course() *course.Service       { return r.course }
func (r *registry) Runner() *course.Runner        { return r.runner }
func (r *registry) Quiz() *quiz.Service           { return r.quiz }
func (r *registry) Chat() *chat.Service           { return r.chat }
func (r *registry) Readier() *Readier             { return r.readier }

func (r *registry) Close() error {
	var errs []error
	if closer, ok := r.vector.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if r.embedder != nil {
		if err := r.embedder.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
