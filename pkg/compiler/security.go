package compiler

import (
	"github.com/platinummonkey/apicatalog/pkg/document"
	"github.com/platinummonkey/apicatalog/pkg/merge"
)

// buildServers compiles a Server object list
func (c *Compiler) buildServers(list []document.Value, path string) ([]*document.Object, error) {
	servers := make([]*document.Object, 0, len(list))
	for i, v := range list {
		obj, err := asObject(v, pointer(path, itoa(i)))
		if err != nil {
			return nil, err
		}
		server, err := c.buildServer(obj, pointer(path, itoa(i)))
		if err != nil {
			return nil, err
		}
		servers = append(servers, server)
	}
	return servers, nil
}

// buildServer compiles one Server object; each variable becomes a
// ServerVariable child carrying its name
func (c *Compiler) buildServer(server *document.Object, path string) (*document.Object, error) {
	out := document.NewObject()
	copyFields(out, server, "url", "description")
	merge.Extensions(out, server)

	vars, err := objectField(server, "variables", path)
	if err != nil {
		return nil, err
	}
	for _, name := range vars.Keys() {
		v, _ := vars.Get(name)
		variable, err := asObject(v, pointer(path, "variables", name))
		if err != nil {
			return nil, err
		}
		out.AppendObject("ServerVariable", variable.Clone().SetString("name", name))
	}
	return out, nil
}

// oauthFlow maps one OAuth flow object onto the Security record fields
type oauthFlow struct {
	key      string
	required map[string]string
	refresh  string
}

var oauthFlows = []oauthFlow{
	{key: "implicit", required: map[string]string{"authorizationUrl": "oauth2ImplAuthUrl"}, refresh: "oauth2ImplRefreshUrl"},
	{key: "password", required: map[string]string{"tokenUrl": "oauth2PassTokenUrl"}, refresh: "oauth2PassRefreshUrl"},
	{key: "clientCredentials", required: map[string]string{"tokenUrl": "oauth2ClientCredTokenUrl"}, refresh: "oauth2ClientCredRefreshUrl"},
	{key: "authorizationCode", required: map[string]string{
		"authorizationUrl": "oauth2CodeAuthUrl",
		"tokenUrl":         "oauth2CodeTokenUrl",
	}, refresh: "oauth2CodeRefreshUrl"},
}

// buildSecurity compiles a Security Requirement list. Each requirement is
// joined with its scheme from components.securitySchemes. An empty
// requirement (anonymous access) is kept as an empty record.
func (c *Compiler) buildSecurity(list []document.Value, path string) ([]*document.Object, error) {
	out := make([]*document.Object, 0, len(list))
	for i, v := range list {
		reqPath := pointer(path, itoa(i))
		req, err := asObject(v, reqPath)
		if err != nil {
			return nil, err
		}
		c.stats.SecurityReqs++
		if req.Len() == 0 {
			out = append(out, document.NewObject())
			continue
		}

		name := req.Keys()[0]
		rec := document.NewObject().SetString("name", name)

		scopeList, _, err := arrayField(req, name, reqPath)
		if err != nil {
			return nil, err
		}
		scopes := make([]*document.Object, 0, len(scopeList))
		for j, s := range scopeList {
			scope, ok := s.AsString()
			if !ok {
				return nil, malformed(pointer(reqPath, name, itoa(j)), "expected scope name, got %s", s.Type())
			}
			scopes = append(scopes, document.NewObject().SetString("name", scope))
		}

		schemePath := pointer("#", "components", "securitySchemes", name)
		schemeNode := c.root.ObjectAt("components").ObjectAt("securitySchemes").ObjectAt(name)
		if schemeNode == nil {
			return nil, malformed(schemePath, "security scheme %q is not declared", name)
		}
		scheme, err := c.resolve(schemeNode, schemePath)
		if err != nil {
			return nil, err
		}

		copyFields(rec, scheme, "type", "description", "openIdConnectUrl")
		copyAs(rec, "apiKeyName", scheme, "name")
		copyAs(rec, "apiKeyIn", scheme, "in")
		copyAs(rec, "httpScheme", scheme, "scheme")
		copyAs(rec, "httpBearerFormat", scheme, "bearerFormat")
		merge.Extensions(rec, scheme)

		flows, err := objectField(scheme, "flows", schemePath)
		if err != nil {
			return nil, err
		}
		var declared *document.Object
		if flows != nil {
			merge.Extensions(rec, flows)
			for _, f := range oauthFlows {
				flowPath := pointer(schemePath, "flows", f.key)
				flow, err := objectField(flows, f.key, pointer(schemePath, "flows"))
				if err != nil {
					return nil, err
				}
				if flow == nil {
					continue
				}
				for _, src := range []string{"authorizationUrl", "tokenUrl"} {
					dest, ok := f.required[src]
					if !ok {
						continue
					}
					url, err := requiredString(flow, src, flowPath)
					if err != nil {
						return nil, err
					}
					rec.SetString(dest, url)
				}
				copyAs(rec, f.refresh, flow, "refreshUrl")
				merge.Extensions(rec, flow)
				if declared, err = objectField(flow, "scopes", flowPath); err != nil {
					return nil, err
				}
			}
		}

		for _, scope := range scopes {
			name, _ := scope.StringAt("name")
			if d, ok := declared.Get(name); ok {
				scope.Set("description", d.Clone())
			}
		}
		if len(scopes) > 0 || declared != nil {
			rec.SetObjects("SecurityScope", scopes)
		}
		out = append(out, rec)
	}
	return out, nil
}
