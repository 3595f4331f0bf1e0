package rag

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/soundprediction/predicato/pkg/errs"
	"github.com/soundprediction/predicato/pkg/nlp"
	"github.com/soundprediction/predicato/pkg/utils"
)

// QueryOptions carries the optional per-query tuning parameters accepted by
// the HTTP surface.
type QueryOptions struct {
	TopK             int
	MaxTokens        int
	Temperature      float32
	ConversationHist []nlp.Message
}

// MultimodalItem is one piece of attached content on a multimodal query:
// an image, table, or equation. Images may arrive as a filesystem path or
// as raw bytes (already decoded from inline base64 by the facade).
type MultimodalItem struct {
	Type        string // "image", "table", or "equation"
	ImagePath   string
	ImageBytes  []byte
	TableText   string
	EquationTex string
}

// KVReader is the single probe surface for a heterogeneous KV backend,
// replacing the source's dynamic getattr-based method discovery: one
// method, implemented however the underlying store needs to.
type KVReader interface {
	List(ctx context.Context) (map[string]any, error)
}

// EntityRecord is one document's contribution to the entity-name index,
// mirroring the retriever's `full_entities` storage shape.
type EntityRecord struct {
	EntityNames []string
}

// RelationRecord is one document's contribution to the relation-pair index,
// mirroring the retriever's `full_relations` storage shape.
type RelationRecord struct {
	RelationPairs [][2]string
}

// GraphEntity and GraphRelation are the retriever's per-entity/per-edge
// lookups, used once entity names / relation pairs have been unioned.
type GraphEntity struct {
	Type        string
	Description string
	SourceID    string
	FilePath    string
}

type GraphRelation struct {
	Description string
	Weight      float64
}

// Retriever is the opaque external retrieval/graph store: a document
// parser, chunker, vector index, and knowledge graph behind one interface.
// The real system (LightRAG-style) is explicitly out of scope; this
// package's job is the control plane around it.
type Retriever interface {
	ProcessDocument(ctx context.Context, filePath, outputDir, parseMethod string) error
	Query(ctx context.Context, query, mode string, opts QueryOptions) (string, error)
	QueryWithMultimodal(ctx context.Context, query string, items []MultimodalItem, mode string, opts QueryOptions) (string, error)

	EntityRecords(ctx context.Context) (KVReader, error)
	RelationRecords(ctx context.Context) (KVReader, error)
	GetEntity(ctx context.Context, name string) (*GraphEntity, bool, error)
	GetRelation(ctx context.Context, source, target string) (*GraphRelation, bool, error)

	WorkingDir() string
	Close() error
}

// kvMap is the trivial KVReader backing an in-memory map snapshot.
type kvMap map[string]any

func (m kvMap) List(ctx context.Context) (map[string]any, error) {
	return map[string]any(m), nil
}

// chunk is one embedded slice of a processed document.
type chunk struct {
	docID  string
	text   string
	vector []float32
}

// inProcessRetriever is a minimal, self-contained stand-in for the external
// retrieval/graph store: it chunks documents, embeds and stores chunks
// in-memory, and answers queries by nearest-neighbor retrieval followed by
// an LLM completion over the retrieved context. It intentionally does not
// attempt named-entity extraction or graph-quality relation mining — the
// Non-goals explicitly exclude building a vector database or a document
// parser, so this adapter exists only to give the facade and HTTP surface
// something real to exercise end-to-end.
type inProcessRetriever struct {
	workingDir string
	embedder   nlp.Embedder
	reranker   nlp.Reranker
	llm        nlp.LLMCompleter
	vision     nlp.VisionCompleter

	mu       sync.RWMutex
	chunks   []chunk
	entities map[string][]string  // docID -> entity names (heuristic, over the whole document)
	relPairs map[string][][2]string
}

// NewInProcessRetriever wires the provider set into a self-contained
// retriever. reranker and vision may be nil when those providers are
// disabled.
func NewInProcessRetriever(workingDir string, embedder nlp.Embedder, reranker nlp.Reranker, llm nlp.LLMCompleter, vision nlp.VisionCompleter) Retriever {
	return &inProcessRetriever{
		workingDir: workingDir,
		embedder:   embedder,
		reranker:   reranker,
		llm:        llm,
		vision:     vision,
		entities:   make(map[string][]string),
		relPairs:   make(map[string][][2]string),
	}
}

func (r *inProcessRetriever) WorkingDir() string { return r.workingDir }

func (r *inProcessRetriever) Close() error {
	var firstErr error
	if err := r.embedder.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if r.reranker != nil {
		if err := r.reranker.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := r.llm.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if r.vision != nil {
		if err := r.vision.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ProcessDocument reads filePath line-by-line, groups lines into
// paragraph-sized chunks, embeds them, and stores them for retrieval. A
// document's "entities" are a heuristic over capitalized words, purely so
// the graph endpoints have something non-empty to return; this is not a
// real NER pipeline.
func (r *inProcessRetriever) ProcessDocument(ctx context.Context, filePath, outputDir, parseMethod string) error {
	text, err := readTextFile(filePath)
	if err != nil {
		return err
	}

	docID := filePath
	texts := splitIntoChunks(text, 1000)
	if len(texts) == 0 {
		return nil
	}

	vectors, err := r.embedder.Embed(ctx, texts)
	if err != nil {
		return errs.NewEncoderError("embed document chunks for "+filePath, err)
	}

	newChunks := make([]chunk, len(texts))
	for i, t := range texts {
		newChunks[i] = chunk{docID: docID, text: t, vector: vectors[i]}
	}

	names := heuristicEntityNames(text)
	pairs := heuristicRelationPairs(names)

	r.mu.Lock()
	r.chunks = append(r.chunks, newChunks...)
	r.entities[docID] = names
	r.relPairs[docID] = pairs
	r.mu.Unlock()

	return nil
}

func (r *inProcessRetriever) Query(ctx context.Context, query, mode string, opts QueryOptions) (string, error) {
	return r.QueryWithMultimodal(ctx, query, nil, mode, opts)
}

func (r *inProcessRetriever) QueryWithMultimodal(ctx context.Context, query string, items []MultimodalItem, mode string, opts QueryOptions) (string, error) {
	topK := opts.TopK
	if topK <= 0 {
		topK = 5
	}

	contextChunks, err := r.retrieve(ctx, query, topK)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, c := range contextChunks {
		sb.WriteString(c)
		sb.WriteString("\n\n")
	}
	for _, item := range items {
		switch item.Type {
		case "table":
			sb.WriteString("[table]\n" + item.TableText + "\n\n")
		case "equation":
			sb.WriteString("[equation]\n" + item.EquationTex + "\n\n")
		}
	}

	system := fmt.Sprintf("Answer using only the provided context. Mode: %s.", mode)
	prompt := fmt.Sprintf("Context:\n%s\nQuestion: %s", sb.String(), query)

	hasImages := false
	var imageBytes [][]byte
	for _, item := range items {
		if item.Type == "image" && len(item.ImageBytes) > 0 {
			hasImages = true
			imageBytes = append(imageBytes, item.ImageBytes)
		}
	}

	completeOpts := nlp.CompleteOptions{MaxTokens: opts.MaxTokens, Temperature: opts.Temperature}

	if hasImages && r.vision != nil {
		resp, err := r.vision.CompleteWithImages(ctx, prompt, imageBytes, system, completeOpts)
		if err != nil {
			return "", err
		}
		return resp, nil
	}

	resp, err := r.llm.Complete(ctx, prompt, system, opts.ConversationHist, completeOpts)
	if err != nil {
		return "", err
	}
	if resp == "" {
		return "", errs.NewInternalError("query pipeline returned no response", nil)
	}
	return resp, nil
}

// retrieve embeds the query and returns the topK chunk texts by cosine
// similarity, optionally reranked when a reranker is configured.
func (r *inProcessRetriever) retrieve(ctx context.Context, query string, topK int) ([]string, error) {
	r.mu.RLock()
	snapshot := make([]chunk, len(r.chunks))
	copy(snapshot, r.chunks)
	r.mu.RUnlock()

	if len(snapshot) == 0 {
		return nil, nil
	}

	vecs, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, errs.NewEncoderError("embed query", err)
	}
	qv := vecs[0]

	type scored struct {
		text  string
		score float64
	}
	candidates := make([]scored, len(snapshot))
	for i, c := range snapshot {
		candidates[i] = scored{text: c.text, score: cosine(qv, c.vector)}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	limit := topK * 3
	if limit > len(candidates) || limit <= 0 {
		limit = len(candidates)
	}
	candidates = candidates[:limit]

	if r.reranker != nil && len(candidates) > 0 {
		docs := make([]string, len(candidates))
		for i, c := range candidates {
			docs[i] = c.text
		}
		scores, err := r.reranker.Rerank(ctx, query, docs)
		if err == nil && len(scores) == len(candidates) {
			for i := range candidates {
				candidates[i].score = scores[i]
			}
			sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
		}
	}

	if topK < len(candidates) {
		candidates = candidates[:topK]
	}

	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.text
	}
	return out, nil
}

func (r *inProcessRetriever) EntityRecords(ctx context.Context) (KVReader, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(kvMap, len(r.entities))
	for docID, names := range r.entities {
		out[docID] = EntityRecord{EntityNames: names}
	}
	return out, nil
}

func (r *inProcessRetriever) RelationRecords(ctx context.Context) (KVReader, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(kvMap, len(r.relPairs))
	for docID, pairs := range r.relPairs {
		out[docID] = RelationRecord{RelationPairs: pairs}
	}
	return out, nil
}

func (r *inProcessRetriever) GetEntity(ctx context.Context, name string) (*GraphEntity, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for docID, names := range r.entities {
		for _, n := range names {
			if n == name {
				return &GraphEntity{Type: "concept", SourceID: docID, FilePath: docID}, true, nil
			}
		}
	}
	return nil, false, nil
}

func (r *inProcessRetriever) GetRelation(ctx context.Context, source, target string) (*GraphRelation, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, pairs := range r.relPairs {
		for _, p := range pairs {
			if p[0] == source && p[1] == target {
				return &GraphRelation{Description: "related_to", Weight: 1.0}, true, nil
			}
		}
	}
	return nil, false, nil
}

func cosine(a, b []float32) float64 {
	return utils.CosineSimilarity(a, b)
}

func splitIntoChunks(text string, maxChars int) []string {
	paragraphs := strings.Split(text, "\n\n")
	var chunks []string
	var current strings.Builder
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if current.Len()+len(p) > maxChars && current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(p)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

func readTextFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", classifyFileOpenError(path, err)
	}
	defer f.Close()

	var sb strings.Builder
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		sb.WriteString(scanner.Text())
		sb.WriteString("\n")
	}
	if err := scanner.Err(); err != nil {
		return "", errs.NewInternalError("read document "+path, err)
	}
	return sb.String(), nil
}

// heuristicEntityNames picks capitalized words as a stand-in for named
// entity recognition, which is explicitly out of scope.
func heuristicEntityNames(text string) []string {
	words := strings.Fields(text)
	seen := make(map[string]bool)
	var names []string
	for _, w := range words {
		w = strings.Trim(w, ".,;:!?()[]\"'")
		if len(w) < 3 || !isCapitalized(w) {
			continue
		}
		if !seen[w] {
			seen[w] = true
			names = append(names, w)
		}
		if len(names) >= 50 {
			break
		}
	}
	return names
}

func classifyFileOpenError(path string, err error) error {
	if os.IsNotExist(err) {
		return errs.NewNotFoundError("document not found: %s", path)
	}
	if os.IsPermission(err) {
		return errs.NewForbiddenError("document not readable: %s", path)
	}
	return errs.NewInternalError("open document "+path, err)
}

func isCapitalized(s string) bool {
	r := rune(s[0])
	return r >= 'A' && r <= 'Z'
}

func heuristicRelationPairs(names []string) [][2]string {
	var pairs [][2]string
	for i := 0; i+1 < len(names); i++ {
		pairs = append(pairs, [2]string{names[i], names[i+1]})
	}
	return pairs
}
