package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/platinummonkey/apicatalog/pkg/catalog"
	"github.com/platinummonkey/apicatalog/pkg/compiler"
	"github.com/platinummonkey/apicatalog/pkg/document"
	"github.com/platinummonkey/apicatalog/pkg/httputil"
	"github.com/platinummonkey/apicatalog/pkg/observability"
	"github.com/platinummonkey/apicatalog/pkg/query"
	"github.com/platinummonkey/apicatalog/pkg/storage"
)

const (
	contentTypeJSON = "application/json"
	contentTypeYAML = "application/yaml"
)

// compile runs the compiler on raw, reusing a cached result for identical input
func (s *Server) compile(ctx context.Context, raw []byte) (*compiled, error) {
	key := cacheKey(raw, s.runner.Limits)
	if c, ok := s.cache.get(key); ok {
		return c, nil
	}

	res, err := s.runner.Run(observability.WithDigest(ctx, key[:16]), raw)
	if err != nil {
		return nil, err
	}
	data, err := res.Compiled.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encoding compiled description: %w", err)
	}
	c := &compiled{doc: res.Compiled, json: data, stats: res.Stats}
	s.cache.add(key, c)
	return c, nil
}

// detectContentType names the format of a submitted description
func detectContentType(r *http.Request, raw []byte) string {
	if ct := r.Header.Get("Content-Type"); strings.Contains(ct, "yaml") {
		return contentTypeYAML
	}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '{' {
		return contentTypeJSON
	}
	return contentTypeYAML
}

// serviceInfo reads the title and version of the compiled service
func serviceInfo(doc *document.Object) (title, version string) {
	services := doc.ObjectsAt("Service")
	if len(services) == 0 {
		return "", ""
	}
	title, _ = services[0].StringAt("title")
	version, _ = services[0].StringAt("version")
	return title, version
}

// CreateDescriptionResponse is the body of a successful POST /descriptions
type CreateDescriptionResponse struct {
	ID    string         `json:"id"`
	Stats compiler.Stats `json:"stats"`
}

// createDescription handles POST /descriptions
func (s *Server) createDescription(w http.ResponseWriter, r *http.Request) {
	raw, err := httputil.ReadBody(r, s.maxBody)
	if err != nil {
		s.writeBodyError(w, r, err)
		return
	}

	c, err := s.compile(r.Context(), raw)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	title, version := serviceInfo(c.doc)
	d := &storage.Description{
		Title:       title,
		Version:     version,
		ContentType: detectContentType(r, raw),
		Original:    raw,
		Compiled:    c.json,
	}
	if err := s.store.Put(r.Context(), d); err != nil {
		s.writeError(w, r, err)
		return
	}
	if s.metrics != nil {
		s.metrics.DescriptionsStored.Inc()
	}

	observability.FromContext(observability.WithDescriptionID(r.Context(), d.ID)).
		WithField("title", title).
		Info("description stored")
	_ = httputil.WriteCreated(w, CreateDescriptionResponse{ID: d.ID, Stats: c.stats})
}

func (s *Server) writeBodyError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, httputil.ErrBodyTooLarge) {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteBadRequest(w, err.Error())
}

// listDescriptions handles GET /descriptions?limit=&offset=
func (s *Server) listDescriptions(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 100)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	list, err := s.store.List(r.Context(), limit, offset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, map[string]interface{}{"descriptions": list})
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := httputil.ParseQueryString(r, key, "")
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return v, nil
}

// lookup loads the description named by the {id} path parameter
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*storage.Description, bool) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return nil, false
	}
	if err := query.ValidateID(id); err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	d, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return d, true
}

// getDescription handles GET /descriptions/{id} and answers with the
// original document
func (s *Server) getDescription(w http.ResponseWriter, r *http.Request) {
	d, ok := s.lookup(w, r)
	if !ok {
		return
	}
	ct := d.ContentType
	if ct == "" {
		ct = contentTypeYAML
	}
	w.Header().Set("Content-Type", ct)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(d.Original)
}

// getCompiled handles GET /descriptions/{id}/compiled
func (s *Server) getCompiled(w http.ResponseWriter, r *http.Request) {
	d, ok := s.lookup(w, r)
	if !ok {
		return
	}
	httputil.WriteRawJSON(w, http.StatusOK, d.Compiled)
}

// deleteDescription handles DELETE /descriptions/{id}
func (s *Server) deleteDescription(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	if err := query.ValidateID(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	if s.metrics != nil {
		s.metrics.DescriptionsStored.Dec()
	}
	w.WriteHeader(http.StatusNoContent)
}

// compileDescription handles POST /compile. Nothing is stored.
func (s *Server) compileDescription(w http.ResponseWriter, r *http.Request) {
	raw, err := httputil.ReadBody(r, s.maxBody)
	if err != nil {
		s.writeBodyError(w, r, err)
		return
	}
	c, err := s.compile(r.Context(), raw)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("X-Compiled-Requests", strconv.Itoa(c.stats.Requests))
	httputil.WriteRawJSON(w, http.StatusOK, c.json)
}

// CatalogResponse describes the whole catalog
type CatalogResponse struct {
	Kinds      []catalog.KindInfo `json:"kinds"`
	Edges      []string           `json:"edges"`
	IndexPaths []string           `json:"indexPaths"`
}

// getCatalog handles GET /catalog
func (s *Server) getCatalog(w http.ResponseWriter, r *http.Request) {
	edges := s.catalog.Edges()
	names := make([]string, len(edges))
	for i, e := range edges {
		names[i] = e.String()
	}
	_ = httputil.WriteSuccess(w, CatalogResponse{
		Kinds:      s.catalog.Describe(),
		Edges:      names,
		IndexPaths: catalog.IndexPaths(),
	})
}

// getCatalogKind handles GET /catalog/{kind}
func (s *Server) getCatalogKind(w http.ResponseWriter, r *http.Request) {
	name, ok := httputil.ParsePathStringOrError(w, r, "kind")
	if !ok {
		return
	}
	kind, err := catalog.ParseKind(name)
	if err != nil {
		httputil.WriteNotFoundError(w, err.Error())
		return
	}
	_ = httputil.WriteSuccess(w, s.catalog.DescribeKind(kind))
}

// resolveJoins handles POST /joins
func (s *Server) resolveJoins(w http.ResponseWriter, r *http.Request) {
	var req query.Request
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	res, err := s.resolver.Resolve(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, res)
}

// flattenResults handles POST /results/flatten with a body of
// {"flattened": ["alias", ...], "rows": [{...}, ...]}
func (s *Server) flattenResults(w http.ResponseWriter, r *http.Request) {
	raw, err := httputil.ReadBody(r, s.maxBody)
	if err != nil {
		s.writeBodyError(w, r, err)
		return
	}
	body, err := document.Decode(raw)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	var flattened []string
	if list, ok := body.ArrayAt("flattened"); ok {
		for _, v := range list {
			name, isString := v.AsString()
			if !isString {
				httputil.WriteBadRequest(w, "flattened must list field names")
				return
			}
			flattened = append(flattened, name)
		}
	}
	rowValues, ok := body.ArrayAt("rows")
	if !ok {
		httputil.WriteBadRequest(w, "rows must be an array")
		return
	}
	rows := make([]*document.Object, 0, len(rowValues))
	for _, v := range rowValues {
		row, isObj := v.AsObject()
		if !isObj {
			httputil.WriteBadRequest(w, "every row must be an object")
			return
		}
		rows = append(rows, row)
	}

	out := document.NewObject().SetObjects("rows", query.FlattenAll(rows, flattened))
	data, err := out.MarshalJSON()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	httputil.WriteRawJSON(w, http.StatusOK, data)
}
