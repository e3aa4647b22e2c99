/*
Package convopipe routes a conversational query through a pipeline of
decision stages and tracks execution per conversation thread.

# Overview

Every query passes through up to four stages: intent classification,
knowledge retrieval, relevance ranking, and response generation.
Classification is pure and local; retrieval and generation delegate to
external collaborators behind the Searcher and Generator interfaces.
The route decides the shape of the run: greetings and general chat skip
retrieval entirely, knowledge-seeking queries pull ranked context into
the generation prompt.

	pipe, err := convopipe.New(generator,
	    convopipe.WithSearcher(searcher),
	    convopipe.WithTracer(observability.NewLogTracer(logger)),
	)
	if err != nil {
	    log.Fatal(err)
	}

	state, err := pipe.Run(ctx, "what is our leave policy",
	    convopipe.WithThreadID("slack-C024BE91L"),
	    convopipe.WithUser("jdoe"),
	)
	if err != nil {
	    fmt.Println(convopipe.FallbackMessage)
	    return
	}
	fmt.Println(state.Messages[len(state.Messages)-1].Content)

# Thread correlation

Chat-platform threads span many pipeline invocations. The correlate
package assigns each thread one stable run ID, so a whole conversation
appears in trace systems as one correlated run. Stores are pluggable:
in-memory by default, SQLite for cross-restart correlation.

# Failure policy

Retrieval and tracing are non-essential: a failed or timed-out search
degrades to an empty document context, and tracer errors are logged and
swallowed. Generation is the pipeline's sole output, so its failure
aborts the run; callers should show FallbackMessage rather than the
error detail.
*/
package convopipe
