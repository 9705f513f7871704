package decoder

import (
	"fmt"

	ffmpeg "github.com/linuxmatters/ffmpeg-statigo"

	"github.com/linuxmatters/jivecut/internal/media"
)

// Graph is a configured buffer source -> spec -> buffer sink filter chain.
type Graph struct {
	graph *ffmpeg.AVFilterGraph
	Src   *ffmpeg.AVFilterContext
	Sink  *ffmpeg.AVFilterContext
}

// bufferFilters names the source and sink filters for each kind.
func bufferFilters(kind media.Kind) (src, sink string) {
	if kind == media.KindAudio {
		return "abuffer", "abuffersink"
	}
	return "buffer", "buffersink"
}

// NewGraph builds and configures a graph whose source is created with
// srcArgs and whose frames pass through spec. The caller frees it with Free.
func NewGraph(kind media.Kind, srcArgs, spec string) (*Graph, error) {
	graph := ffmpeg.AVFilterGraphAlloc()
	if graph == nil {
		return nil, fmt.Errorf("failed to allocate filter graph")
	}
	g := &Graph{graph: graph}

	srcName, sinkName := bufferFilters(kind)

	argsC := ffmpeg.ToCStr(srcArgs)
	defer argsC.Free()

	var err error
	if g.Src, err = createFilter(graph, srcName, "in", argsC); err != nil {
		g.Free()
		return nil, err
	}
	if g.Sink, err = createFilter(graph, sinkName, "out", nil); err != nil {
		g.Free()
		return nil, err
	}

	outputs := ffmpeg.AVFilterInoutAlloc()
	inputs := ffmpeg.AVFilterInoutAlloc()
	defer ffmpeg.AVFilterInoutFree(&outputs)
	defer ffmpeg.AVFilterInoutFree(&inputs)

	outputs.SetName(ffmpeg.ToCStr("in"))
	outputs.SetFilterCtx(g.Src)
	outputs.SetPadIdx(0)
	outputs.SetNext(nil)

	inputs.SetName(ffmpeg.ToCStr("out"))
	inputs.SetFilterCtx(g.Sink)
	inputs.SetPadIdx(0)
	inputs.SetNext(nil)

	specC := ffmpeg.ToCStr(spec)
	defer specC.Free()

	if _, err := ffmpeg.AVFilterGraphParsePtr(graph, specC, &inputs, &outputs, nil); err != nil {
		g.Free()
		return nil, fmt.Errorf("failed to parse filter graph %q: %w", spec, err)
	}
	if _, err := ffmpeg.AVFilterGraphConfig(graph, nil); err != nil {
		g.Free()
		return nil, fmt.Errorf("failed to configure filter graph: %w", err)
	}

	return g, nil
}

func createFilter(graph *ffmpeg.AVFilterGraph, name, label string, args *ffmpeg.CStr) (*ffmpeg.AVFilterContext, error) {
	filter := ffmpeg.AVFilterGetByName(ffmpeg.GlobalCStr(name))
	if filter == nil {
		return nil, fmt.Errorf("%s filter not found", name)
	}
	var ctx *ffmpeg.AVFilterContext
	if _, err := ffmpeg.AVFilterGraphCreateFilter(&ctx, filter, ffmpeg.GlobalCStr(label), args, nil, graph); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", name, err)
	}
	return ctx, nil
}

// Free releases the graph and every filter in it. It is safe to call twice.
func (g *Graph) Free() {
	if g.graph != nil {
		ffmpeg.AVFilterGraphFree(&g.graph)
	}
	g.Src, g.Sink = nil, nil
}
