package config

// mergeMCPServers merges built-in and user-defined MCP server configurations.
// User-defined servers override built-in servers with the same ID.
func mergeMCPServers(builtinServers map[string]MCPServerConfig, userServers map[string]MCPServerConfig) map[string]*MCPServerConfig {
	result := make(map[string]*MCPServerConfig)

	for id, server := range builtinServers {
		serverCopy := server
		result[id] = &serverCopy
	}

	for id, userServer := range userServers {
		serverCopy := userServer
		result[id] = &serverCopy
	}

	return result
}

// mergeLLMProviders merges built-in and user-defined LLM provider configurations.
// User-defined providers override built-in providers with the same name.
func mergeLLMProviders(builtinProviders map[string]LLMProviderConfig, userProviders map[string]LLMProviderConfig) map[string]*LLMProviderConfig {
	result := make(map[string]*LLMProviderConfig)

	for name, provider := range builtinProviders {
		providerCopy := provider
		result[name] = &providerCopy
	}

	for name, userProvider := range userProviders {
		providerCopy := userProvider
		result[name] = &providerCopy
	}

	return result
}

// mergeAllowlist appends user-declared tables to the built-in allow-list,
// de-duplicating case-insensitively. The allow-list only ever grows under a
// merge — there is no override-to-remove semantics, since silently
// shrinking an allow-list via config merge would be surprising at the
// security boundary it backs.
func mergeAllowlist(builtin AllowlistConfig, user AllowlistConfig) AllowlistConfig {
	seen := make(map[string]struct{}, len(builtin.Tables)+len(user.Tables))
	result := make([]string, 0, len(builtin.Tables)+len(user.Tables))
	for _, t := range append(append([]string{}, builtin.Tables...), user.Tables...) {
		key := normalizeTableKey(t)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, t)
	}
	return AllowlistConfig{Tables: result}
}

// mergeRemap overlays user identifier/literal mappings onto the built-in
// table; a user entry for a key that also exists in the built-in table wins.
func mergeRemap(builtin RemapConfig, user RemapConfig) RemapConfig {
	result := RemapConfig{
		IdentifierMap:    make(map[string]string, len(builtin.IdentifierMap)+len(user.IdentifierMap)),
		LiteralMap:       make(map[string]string, len(builtin.LiteralMap)+len(user.LiteralMap)),
		ExcludedContexts: append([]string{}, builtin.ExcludedContexts...),
	}
	for k, v := range builtin.IdentifierMap {
		result.IdentifierMap[k] = v
	}
	for k, v := range user.IdentifierMap {
		result.IdentifierMap[k] = v
	}
	for k, v := range builtin.LiteralMap {
		result.LiteralMap[k] = v
	}
	for k, v := range user.LiteralMap {
		result.LiteralMap[k] = v
	}
	result.ExcludedContexts = append(result.ExcludedContexts, user.ExcludedContexts...)
	return result
}
