/*
Package dsl builds graphs for the resolution engine.

There are two ways in. The fluent Builder is for Go code:

	b := dsl.New("app")
	b.Graph("app").
		Entry("default", "app:home", "").
		Resume("resume", "default").
		Arrow("app:home", "open", "app:settings", "default")
	b.Leaf("app:home")
	b.Graph("app:settings").Entry("default", "app:settings:audio", "")
	b.Leaf("app:settings:audio")
	g, err := b.Build()

Plans are the declarative form, as decoded from YAML, JSON or HCL. A plan is
compiled by a pipeline of handlers; each consumes the keys it understands and
returns a step that writes them into the NodeSpec:

	id: app:panels
	kind: composite
	nodes: [app:panels:left, app:panels:right]

Export turns a graph back into a Document of plans.
*/
package dsl
