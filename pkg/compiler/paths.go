package compiler

import (
	"strings"

	"github.com/platinummonkey/apicatalog/pkg/document"
	"github.com/platinummonkey/apicatalog/pkg/merge"
)

var httpMethods = []string{"get", "put", "post", "delete", "options", "head", "patch", "trace"}

// buildRequests compiles the Paths object into one Request record per
// operation and media type. Keys that are not paths (extensions) are skipped,
// and the extensions of the Paths object land on every request.
func (c *Compiler) buildRequests(paths *document.Object, security, servers []*document.Object) ([]*document.Object, error) {
	var requests []*document.Object
	for _, p := range paths.Keys() {
		if !strings.HasPrefix(p, "/") {
			continue
		}
		itemPath := pointer("#/paths", p)
		v, _ := paths.Get(p)
		item, err := asObject(v, itemPath)
		if err != nil {
			return nil, err
		}
		reqs, err := c.buildPathItem(p, item, security, servers, itemPath)
		if err != nil {
			return nil, err
		}
		requests = append(requests, reqs...)
	}
	for _, r := range requests {
		merge.Extensions(r, paths)
	}
	return requests, nil
}

// buildPathItem compiles every operation of a Path Item. An empty urlPath
// (webhooks) is not recorded. Servers and security declared closer to the
// operation replace the inherited ones.
func (c *Compiler) buildPathItem(urlPath string, item *document.Object, security, servers []*document.Object, path string) ([]*document.Object, error) {
	resolved, err := c.resolve(item, path)
	if err != nil {
		return nil, err
	}
	if resolved != item {
		merged := item.Clone()
		resolved.Range(func(k string, v document.Value) bool {
			merged.Set(k, v)
			return true
		})
		item = merged
	}

	if list, ok, err := arrayField(item, "servers", path); err != nil {
		return nil, err
	} else if ok {
		if servers, err = c.buildServers(list, pointer(path, "servers")); err != nil {
			return nil, err
		}
	}

	base := document.NewObject()
	copyFields(base, item, "summary", "description")
	params, _, err := arrayField(item, "parameters", path)
	if err != nil {
		return nil, err
	}
	for i, pv := range params {
		param, err := c.buildParameterValue(pv, pointer(path, "parameters", itoa(i)))
		if err != nil {
			return nil, err
		}
		base.AppendObject("Parameter", param)
	}
	merge.Extensions(base, item)

	var result []*document.Object
	for _, method := range httpMethods {
		ov, ok := item.Get(method)
		if !ok {
			continue
		}
		opPath := pointer(path, method)
		op, err := asObject(ov, opPath)
		if err != nil {
			return nil, err
		}
		reqs, err := c.buildOperation(base.Clone(), urlPath, method, op, security, servers, opPath)
		if err != nil {
			return nil, err
		}
		result = append(result, reqs...)
	}
	return result, nil
}

// buildOperation fills req from one Operation object. A request body with
// several media types yields one record per media type; the extra records come
// first and req itself carries the first media type.
func (c *Compiler) buildOperation(req *document.Object, urlPath, method string, op *document.Object, security, servers []*document.Object, path string) ([]*document.Object, error) {
	if urlPath != "" {
		req.SetString("path", urlPath)
	}
	req.SetString("method", method)
	copyFields(req, op, "summary", "description", "operationId", "tags")

	if list, ok, err := arrayField(op, "servers", path); err != nil {
		return nil, err
	} else if ok {
		built, err := c.buildServers(list, pointer(path, "servers"))
		if err != nil {
			return nil, err
		}
		req.SetObjects("Server", built)
	} else if servers != nil {
		req.SetObjects("Server", document.CloneAll(servers))
	}

	if list, ok, err := arrayField(op, "security", path); err != nil {
		return nil, err
	} else if ok {
		built, err := c.buildSecurity(list, pointer(path, "security"))
		if err != nil {
			return nil, err
		}
		req.SetObjects("Security", built)
	} else if security != nil {
		req.SetObjects("Security", document.CloneAll(security))
	}

	callbacks, err := objectField(op, "callbacks", path)
	if err != nil {
		return nil, err
	}
	if callbacks != nil {
		built, err := c.buildCallbacks(callbacks, pointer(path, "callbacks"))
		if err != nil {
			return nil, err
		}
		req.SetObjects("Callback", built)
	}

	docs, err := objectField(op, "externalDocs", path)
	if err != nil {
		return nil, err
	}
	applyExternalDocs(req, docs)
	req.SetBool("deprecated", op.BoolAt("deprecated", false))
	merge.Extensions(req, op)

	if err := c.overrideParameters(req, op, path); err != nil {
		return nil, err
	}

	responses, err := objectField(op, "responses", path)
	if err != nil {
		return nil, err
	}
	if responses != nil {
		built, err := c.buildResponses(responses, pointer(path, "responses"))
		if err != nil {
			return nil, err
		}
		req.SetObjects("Response", built)
	}

	bodyNode, err := objectField(op, "requestBody", path)
	if err != nil {
		return nil, err
	}
	if bodyNode == nil {
		return []*document.Object{req}, nil
	}
	bodyPath := pointer(path, "requestBody")
	body, err := c.resolve(bodyNode, bodyPath)
	if err != nil {
		return nil, err
	}
	copyAs(req, "bodyDescription", body, "description")
	req.SetBool("bodyRequired", body.BoolAt("required", false))
	merge.Extensions(req, body)

	content, err := objectField(body, "content", bodyPath)
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, malformed(pointer(bodyPath, "content"), "required field is missing")
	}
	media, err := c.buildContent(content, pointer(bodyPath, "content"))
	if err != nil {
		return nil, err
	}
	return splitByMediaType(req, media), nil
}

// splitByMediaType returns one copy of rec per media type, extra media types
// first and rec itself (carrying the first media type) last
func splitByMediaType(rec *document.Object, media []*document.Object) []*document.Object {
	if len(media) == 0 {
		return []*document.Object{rec}
	}
	out := make([]*document.Object, 0, len(media))
	for _, m := range media[1:] {
		extra := rec.Clone()
		applyMediaType(extra, m)
		out = append(out, extra)
	}
	applyMediaType(rec, media[0])
	return append(out, rec)
}

// overrideParameters adds the operation's parameters. A path-level parameter
// with the same name and location is replaced.
func (c *Compiler) overrideParameters(req, op *document.Object, path string) error {
	params, ok, err := arrayField(op, "parameters", path)
	if err != nil || !ok {
		return err
	}
	for i, pv := range params {
		param, err := c.buildParameterValue(pv, pointer(path, "parameters", itoa(i)))
		if err != nil {
			return err
		}
		name, _ := param.StringAt("name")
		in, _ := param.StringAt("in")

		existing := req.ObjectsAt("Parameter")
		kept := make([]*document.Object, 0, len(existing)+1)
		replaced := false
		for _, e := range existing {
			en, _ := e.StringAt("name")
			ein, _ := e.StringAt("in")
			if !replaced && en == name && ein == in {
				replaced = true
				continue
			}
			kept = append(kept, e)
		}
		req.SetObjects("Parameter", append(kept, param))
	}
	return nil
}

// buildParameterValue resolves and compiles one Parameter object
func (c *Compiler) buildParameterValue(v document.Value, path string) (*document.Object, error) {
	param, err := c.resolveValue(v, path)
	if err != nil {
		return nil, err
	}
	name, err := requiredString(param, "name", path)
	if err != nil {
		return nil, err
	}
	in, err := requiredString(param, "in", path)
	if err != nil {
		return nil, err
	}

	out := document.NewObject().SetString("name", name)
	copyFields(out, param, "in", "description")
	out.SetBool("required", param.BoolAt("required", false))
	out.SetBool("deprecated", param.BoolAt("deprecated", false))
	out.SetBool("allowEmptyValue", param.BoolAt("allowEmptyValue", false))

	style, ok := param.StringAt("style")
	if !ok {
		style = "form"
		if in == "path" || in == "header" {
			style = "simple"
		}
	}
	out.SetString("style", style)
	out.SetBool("explode", param.BoolAt("explode", style == "form"))
	out.SetBool("allowReserved", param.BoolAt("allowReserved", false))
	merge.Extensions(out, param)

	if err := c.applySchemaOrContent(out, param, path); err != nil {
		return nil, err
	}
	if err := c.appendExamples(out, param, path); err != nil {
		return nil, err
	}
	return out, nil
}

// applySchemaOrContent compiles the schema of a parameter or header, or the
// first entry of its content map
func (c *Compiler) applySchemaOrContent(dest, src *document.Object, path string) error {
	schema, err := objectField(src, "schema", path)
	if err != nil {
		return err
	}
	if schema != nil {
		variants, err := c.ComposeSchema(schema, nil, "", pointer(path, "schema"))
		if err != nil {
			return err
		}
		dest.SetObjects("Schema", variants)
		return nil
	}

	content, err := objectField(src, "content", path)
	if err != nil || content == nil {
		return err
	}
	media, err := c.buildContent(content, pointer(path, "content"))
	if err != nil {
		return err
	}
	if len(media) > 0 {
		applyMediaType(dest, media[0])
	}
	return nil
}

// buildCallbacks compiles a Callbacks map. Every expression of every callback
// yields Request-shaped records tagged with the callback name.
func (c *Compiler) buildCallbacks(callbacks *document.Object, path string) ([]*document.Object, error) {
	var out []*document.Object
	for _, name := range callbacks.Keys() {
		cbPath := pointer(path, name)
		v, _ := callbacks.Get(name)
		callback, err := c.resolveValue(v, cbPath)
		if err != nil {
			return nil, err
		}
		for _, expr := range callback.Keys() {
			if merge.IsExtension(expr) {
				continue
			}
			iv, _ := callback.Get(expr)
			itemPath := pointer(cbPath, expr)
			item, err := asObject(iv, itemPath)
			if err != nil {
				return nil, err
			}
			reqs, err := c.buildPathItem(expr, item, nil, nil, itemPath)
			if err != nil {
				return nil, err
			}
			for _, r := range reqs {
				r.SetString("name", name)
				merge.Extensions(r, callback)
			}
			out = append(out, reqs...)
		}
	}
	return out, nil
}

// buildWebhooks compiles the top-level webhooks map. Webhook operations carry
// no path; they are tagged with the webhook name instead.
func (c *Compiler) buildWebhooks(webhooks *document.Object, path string) ([]*document.Object, error) {
	var out []*document.Object
	for _, name := range webhooks.Keys() {
		hookPath := pointer(path, name)
		v, _ := webhooks.Get(name)
		item, err := asObject(v, hookPath)
		if err != nil {
			return nil, err
		}
		reqs, err := c.buildPathItem("", item, nil, nil, hookPath)
		if err != nil {
			return nil, err
		}
		for _, r := range reqs {
			r.SetString("name", name)
		}
		out = append(out, reqs...)
	}
	return out, nil
}
