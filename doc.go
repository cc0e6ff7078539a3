// Package pagetran translates static HTML pages into another language.
//
// A Pipeline discovers input files, extracts translatable spans with a
// Processor, translates them through an ordered chain of Providers and
// writes <stem>-<lang>.html next to every input. One file failing never
// stops the others.
//
// Basic usage:
//
//	proc, err := processor.NewHTMLProcessor(processor.WithLangAttr(true))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	chain := []pagetran.Provider{
//	    provider.NewDeepLProvider(provider.DeepLConfig{APIKey: os.Getenv("DEEPL_KEY")}),
//	    provider.NewChatGPTProvider(provider.ChatGPTConfig{APIKey: os.Getenv("OPENAI_API_KEY")}),
//	}
//
//	files, err := pagetran.Discover("site", "fr", []string{"es", "de"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := pagetran.NewPipeline(proc, chain).Run(ctx, files, "fr")
//	if err != nil {
//	    log.Fatal(err) // pre-flight failed, nothing was written
//	}
//	pagetran.WriteSummary(os.Stdout, result)
package pagetran
