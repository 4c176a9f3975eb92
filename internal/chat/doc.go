// Package chat answers prompts, optionally grounded in an ingested
// repository.
//
// Without a repository the prompt goes to the language model as a single
// user turn. With one, the prompt is embedded, the nearest chunks of the
// repository namespace are retrieved and stuffed into a retrieval-QA
// prompt:
//
//	svc := chat.NewService(gateway, fileEmbedder, generator, logger)
//	answer, err := svc.Answer(ctx, chat.Request{Prompt: "What does main.py do?", Repository: &repo})
//
// A repository that was never ingested fails with v1.ErrNotFound before
// the model is called.
package chat
