package compiler

import (
	"strconv"

	"github.com/platinummonkey/apicatalog/pkg/document"
	"github.com/platinummonkey/apicatalog/pkg/merge"
)

var rangeStatusCodes = map[string]bool{
	"default": true, "1XX": true, "2XX": true, "3XX": true, "4XX": true, "5XX": true,
}

// buildResponses compiles a Responses object. Numeric codes become numbers,
// "default" and ranges stay strings and extension keys are skipped. A
// response with several media types yields one record per media type.
func (c *Compiler) buildResponses(responses *document.Object, path string) ([]*document.Object, error) {
	var out []*document.Object
	for _, code := range responses.Keys() {
		if merge.IsExtension(code) {
			continue
		}
		respPath := pointer(path, code)
		rec := document.NewObject()
		if rangeStatusCodes[code] {
			rec.SetString("statusCode", code)
		} else {
			n, err := strconv.Atoi(code)
			if err != nil {
				return nil, malformed(respPath, "invalid status code %q", code)
			}
			rec.Set("statusCode", document.Int(n))
		}

		v, _ := responses.Get(code)
		resp, err := c.resolveValue(v, respPath)
		if err != nil {
			return nil, err
		}
		copyFields(rec, resp, "description")

		headers, err := objectField(resp, "headers", respPath)
		if err != nil {
			return nil, err
		}
		if headers != nil {
			built, err := c.buildHeaders(headers, pointer(respPath, "headers"))
			if err != nil {
				return nil, err
			}
			rec.SetObjects("Header", built)
		}

		links, err := objectField(resp, "links", respPath)
		if err != nil {
			return nil, err
		}
		if links != nil {
			built, err := c.buildLinks(links, pointer(respPath, "links"))
			if err != nil {
				return nil, err
			}
			rec.SetObjects("Link", built)
		}
		merge.Extensions(rec, resp)

		content, err := objectField(resp, "content", respPath)
		if err != nil {
			return nil, err
		}
		if content == nil {
			out = append(out, rec)
			continue
		}
		media, err := c.buildContent(content, pointer(respPath, "content"))
		if err != nil {
			return nil, err
		}
		out = append(out, splitByMediaType(rec, media)...)
	}
	return out, nil
}

// buildHeaders compiles a Headers map
func (c *Compiler) buildHeaders(headers *document.Object, path string) ([]*document.Object, error) {
	out := make([]*document.Object, 0, headers.Len())
	for _, name := range headers.Keys() {
		hPath := pointer(path, name)
		v, _ := headers.Get(name)
		header, err := c.resolveValue(v, hPath)
		if err != nil {
			return nil, err
		}

		rec := document.NewObject().SetString("name", name)
		copyFields(rec, header, "description")
		rec.SetBool("required", header.BoolAt("required", false))
		rec.SetBool("deprecated", header.BoolAt("deprecated", false))
		rec.SetBool("allowEmptyValue", header.BoolAt("allowEmptyValue", false))
		style, ok := header.StringAt("style")
		if !ok {
			style = "simple"
		}
		rec.SetString("style", style)
		rec.SetBool("explode", header.BoolAt("explode", false))

		if err := c.applySchemaOrContent(rec, header, hPath); err != nil {
			return nil, err
		}
		if err := c.appendExamples(rec, header, hPath); err != nil {
			return nil, err
		}
		merge.Extensions(rec, header)
		out = append(out, rec)
	}
	return out, nil
}

// buildLinks compiles a Links map. The link's server is flattened onto the
// record and its parameters become LinkParameter children.
func (c *Compiler) buildLinks(links *document.Object, path string) ([]*document.Object, error) {
	out := make([]*document.Object, 0, links.Len())
	for _, name := range links.Keys() {
		lPath := pointer(path, name)
		v, _ := links.Get(name)
		link, err := c.resolveValue(v, lPath)
		if err != nil {
			return nil, err
		}

		rec := document.NewObject().SetString("name", name)
		copyFields(rec, link, "operationRef", "operationId", "description")

		serverNode, err := objectField(link, "server", lPath)
		if err != nil {
			return nil, err
		}
		if serverNode != nil {
			server, err := c.buildServer(serverNode, pointer(lPath, "server"))
			if err != nil {
				return nil, err
			}
			copyFields(rec, server, "url", "ServerVariable")
			copyAs(rec, "serverDescription", server, "description")
		}

		params, err := objectField(link, "parameters", lPath)
		if err != nil {
			return nil, err
		}
		for _, pname := range params.Keys() {
			pv, _ := params.Get(pname)
			rec.AppendObject("LinkParameter", document.NewObject().
				SetString("name", pname).
				Set("value", pv.Clone()))
		}

		copyFields(rec, link, "requestBody")
		merge.Extensions(rec, link)
		out = append(out, rec)
	}
	return out, nil
}

// buildContent compiles a content map into one entry per media type holding
// contentType, Schema and Example
func (c *Compiler) buildContent(content *document.Object, path string) ([]*document.Object, error) {
	out := make([]*document.Object, 0, content.Len())
	for _, mediaType := range content.Keys() {
		mPath := pointer(path, mediaType)
		v, _ := content.Get(mediaType)
		media, err := asObject(v, mPath)
		if err != nil {
			return nil, err
		}
		c.stats.MediaTypes++

		rec := document.NewObject().SetString("contentType", mediaType)
		schema, err := objectField(media, "schema", mPath)
		if err != nil {
			return nil, err
		}
		if schema != nil {
			encoding, err := objectField(media, "encoding", mPath)
			if err != nil {
				return nil, err
			}
			variants, err := c.ComposeSchema(schema, encoding, "", pointer(mPath, "schema"))
			if err != nil {
				return nil, err
			}
			rec.SetObjects("Schema", variants)
		}
		if media.Has("example") || media.Has("examples") {
			examples, err := c.buildExamples(media, mPath)
			if err != nil {
				return nil, err
			}
			rec.SetObjects("Example", examples)
		}
		merge.Extensions(rec, media)
		out = append(out, rec)
	}
	return out, nil
}

// appendExamples adds the examples of src to the Example children of dest
func (c *Compiler) appendExamples(dest, src *document.Object, path string) error {
	if !src.Has("example") && !src.Has("examples") {
		return nil
	}
	examples, err := c.buildExamples(src, path)
	if err != nil {
		return err
	}
	for _, e := range examples {
		dest.AppendObject("Example", e)
	}
	if !dest.Has("Example") {
		dest.SetObjects("Example", nil)
	}
	return nil
}

// buildExamples compiles the example value and the examples map of src
func (c *Compiler) buildExamples(src *document.Object, path string) ([]*document.Object, error) {
	var out []*document.Object
	if v, ok := src.Get("example"); ok {
		out = append(out, document.NewObject().Set("value", v.Clone()))
	}
	examples, err := objectField(src, "examples", path)
	if err != nil {
		return nil, err
	}
	for _, name := range examples.Keys() {
		ePath := pointer(path, "examples", name)
		v, _ := examples.Get(name)
		example, err := c.resolveValue(v, ePath)
		if err != nil {
			return nil, err
		}
		out = append(out, example.Clone().SetString("name", name))
	}
	return out, nil
}
