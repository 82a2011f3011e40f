package generator

// ComposePrompt joins a category context and the user's message into the
// instruction sent to the model. Both parts are passed through verbatim.
func ComposePrompt(context, message string) string {
	return context + "\n\nKullanıcı Sorusu: " + message + "\n\nLütfen bu bağlamda yanıt ver:"
}
