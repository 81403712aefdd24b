package compiler

import (
	"strings"

	"github.com/platinummonkey/apicatalog/pkg/document"
	"github.com/platinummonkey/apicatalog/pkg/merge"
)

// Compile builds the compiled description {"Service": [service]}
func (c *Compiler) Compile() (*document.Object, error) {
	c.stats = Stats{}
	c.depth = 0
	doc := c.root

	service := document.NewObject()
	version, err := requiredString(doc, "openapi", "#")
	if err != nil {
		return nil, err
	}
	service.SetString("openapiVersion", version)
	copyFields(service, doc, "jsonSchemaDialect")
	merge.Extensions(service, doc)

	info, err := objectField(doc, "info", "#")
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, malformed("#/info", "required field is missing")
	}
	copyFields(service, info, "title", "version", "description", "summary", "termsOfService")
	merge.Extensions(service, info)

	contact, err := objectField(info, "contact", "#/info")
	if err != nil {
		return nil, err
	}
	if contact != nil {
		copyAs(service, "contactName", contact, "name")
		copyAs(service, "contactUrl", contact, "url")
		copyAs(service, "contactEmail", contact, "email")
		merge.Extensions(service, contact)
	}

	license, err := objectField(info, "license", "#/info")
	if err != nil {
		return nil, err
	}
	if license != nil {
		copyAs(service, "licenseName", license, "name")
		copyAs(service, "licenseUrl", license, "url")
		copyAs(service, "licenseIdentifier", license, "identifier")
		merge.Extensions(service, license)
	}

	docs, err := objectField(doc, "externalDocs", "#")
	if err != nil {
		return nil, err
	}
	applyExternalDocs(service, docs)

	var servers, security []*document.Object
	if list, ok, err := arrayField(doc, "servers", "#"); err != nil {
		return nil, err
	} else if ok {
		if servers, err = c.buildServers(list, "#/servers"); err != nil {
			return nil, err
		}
	}
	if list, ok, err := arrayField(doc, "security", "#"); err != nil {
		return nil, err
	} else if ok {
		if security, err = c.buildSecurity(list, "#/security"); err != nil {
			return nil, err
		}
	}

	paths, err := objectField(doc, "paths", "#")
	if err != nil {
		return nil, err
	}
	if paths != nil {
		requests, err := c.buildRequests(paths, security, servers)
		if err != nil {
			return nil, err
		}
		service.SetObjects("Request", requests)
		c.stats.Requests = len(requests)
	}

	if list, ok, err := arrayField(doc, "tags", "#"); err != nil {
		return nil, err
	} else if ok {
		tags, err := c.buildTags(list, "#/tags")
		if err != nil {
			return nil, err
		}
		service.SetObjects("Tag", tags)
		c.stats.Tags = len(tags)
	}

	webhooks, err := objectField(doc, "webhooks", "#")
	if err != nil {
		return nil, err
	}
	if webhooks != nil {
		hooks, err := c.buildWebhooks(webhooks, "#/webhooks")
		if err != nil {
			return nil, err
		}
		service.SetObjects("Webhook", hooks)
		c.stats.Webhooks = len(hooks)
	}

	return document.NewObject().SetObjects("Service", []*document.Object{service}), nil
}

// buildTags compiles the top-level tag list. A tag's x-onResource names the
// schema the tag describes; it is composed under Schema instead of being
// copied as an extension.
func (c *Compiler) buildTags(list []document.Value, path string) ([]*document.Object, error) {
	tags := make([]*document.Object, 0, len(list))
	for i, v := range list {
		tagPath := pointer(path, itoa(i))
		tag, err := asObject(v, tagPath)
		if err != nil {
			return nil, err
		}
		name, err := requiredString(tag, "name", tagPath)
		if err != nil {
			return nil, err
		}
		out := document.NewObject().SetString("name", name)
		copyFields(out, tag, "description")

		rest := tag
		if rv, ok := tag.Get("x-onResource"); ok {
			ref, ok := rv.AsString()
			if !ok {
				return nil, malformed(pointer(tagPath, "x-onResource"), "expected reference string, got %s", rv.Type())
			}
			target, err := c.resolver.ResolveString(ref)
			if err != nil {
				return nil, refError(pointer(tagPath, "x-onResource"), err)
			}
			schemas, err := c.ComposeSchema(target, nil, "", refPath(ref))
			if err != nil {
				return nil, err
			}
			out.SetObjects("Schema", schemas)
			rest = tag.Clone()
			rest.Delete("x-onResource")
		}

		docs, err := objectField(tag, "externalDocs", tagPath)
		if err != nil {
			return nil, err
		}
		applyExternalDocs(out, docs)
		merge.Extensions(out, rest)
		tags = append(tags, out)
	}
	return tags, nil
}

// refPath returns the location a same-document reference points to
func refPath(ref string) string {
	if strings.HasPrefix(ref, "#") {
		return ref
	}
	return "#"
}
