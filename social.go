package federation

// The built-in social object types. Registration order matters: nested types
// come before the types embedding them.

func def(v Value) *Value { return &v }

// RegisterSocial registers every built-in social entity type on r.
func RegisterSocial(r *Registry) error {
	schemas := []Schema{
		{
			Name: "Profile",
			Properties: []Property{
				{Name: "author", Kind: KindString},
				{Name: "first_name", Kind: KindString, Optional: true},
				{Name: "last_name", Kind: KindString, Optional: true},
				{Name: "image_url", Kind: KindString, Optional: true},
				{Name: "birthday", Kind: KindString, Optional: true},
				{Name: "gender", Kind: KindString, Optional: true},
				{Name: "bio", Kind: KindString, Optional: true},
				{Name: "location", Kind: KindString, Optional: true},
				{Name: "searchable", Kind: KindBoolean, Default: def(Boolean(true))},
				{Name: "nsfw", Kind: KindBoolean, Default: def(Boolean(false))},
				{Name: "tag_string", Kind: KindString, Optional: true},
			},
			Rules: []Rule{
				DiasporaIDRule("author"),
			},
		},
		{
			Name: "Person",
			Properties: []Property{
				{Name: "guid", Kind: KindString},
				{Name: "author", Kind: KindString},
				{Name: "url", Kind: KindString},
				{Name: "public_key", Kind: KindString, Optional: true},
				{Name: "profile", Kind: KindEntity, EntityType: "Profile", Optional: true},
			},
			Rules: []Rule{
				GUIDRule("guid"),
				DiasporaIDRule("author"),
				NotEmptyRule("url"),
			},
		},
		{
			Name: "Photo",
			Properties: []Property{
				{Name: "guid", Kind: KindString},
				{Name: "author", Kind: KindString},
				{Name: "public", Kind: KindBoolean, Default: def(Boolean(false))},
				{Name: "created_at", Kind: KindTimestamp},
				{Name: "remote_photo_path", Kind: KindString},
				{Name: "remote_photo_name", Kind: KindString},
				{Name: "text", Kind: KindString, Optional: true},
				{Name: "status_message_guid", Kind: KindString, Optional: true},
				{Name: "height", Kind: KindInteger, Optional: true},
				{Name: "width", Kind: KindInteger, Optional: true},
			},
			Rules: []Rule{
				GUIDRule("guid"),
				DiasporaIDRule("author"),
				NotEmptyRule("remote_photo_path"),
				NotEmptyRule("remote_photo_name"),
				NonNegativeRule("height"),
				NonNegativeRule("width"),
			},
			EntityRules: []EntityRule{
				{
					Desc: "height and width must be given together",
					Check: func(values map[string]Value) bool {
						_, h := values["height"]
						_, w := values["width"]
						return h == w
					},
				},
			},
		},
		{
			Name: "PollAnswer",
			Properties: []Property{
				{Name: "guid", Kind: KindString},
				{Name: "answer", Kind: KindString},
			},
			Rules: []Rule{
				GUIDRule("guid"),
				NotEmptyRule("answer"),
			},
		},
		{
			Name: "Poll",
			Properties: []Property{
				{Name: "guid", Kind: KindString},
				{Name: "question", Kind: KindString},
				{Name: "poll_answers", Kind: KindEntities, EntityType: "PollAnswer"},
			},
			Rules: []Rule{
				GUIDRule("guid"),
				NotEmptyRule("question"),
				{
					Property: "poll_answers",
					Desc:     "must carry at least one answer",
					Check:    func(v Value) bool { return len(v.Entities()) > 0 },
				},
			},
		},
		{
			Name: "Post",
			Properties: []Property{
				{Name: "guid", Kind: KindString},
				{Name: "author", Kind: KindString},
				{Name: "public", Kind: KindBoolean, Default: def(Boolean(false))},
				{Name: "created_at", Kind: KindTimestamp},
				{Name: "text", Kind: KindString, Optional: true},
				{Name: "provider_display_name", Kind: KindString, Optional: true},
				{Name: "photos", Kind: KindEntities, EntityType: "Photo", Optional: true},
				{Name: "poll", Kind: KindEntity, EntityType: "Poll", Optional: true},
			},
			Rules: []Rule{
				GUIDRule("guid"),
				DiasporaIDRule("author"),
			},
		},
		{
			Name: "Comment",
			Properties: []Property{
				{Name: "guid", Kind: KindString},
				{Name: "parent_guid", Kind: KindString},
				{Name: "author", Kind: KindString},
				{Name: "text", Kind: KindString},
				{Name: "created_at", Kind: KindTimestamp},
			},
			Rules: []Rule{
				GUIDRule("guid"),
				GUIDRule("parent_guid"),
				DiasporaIDRule("author"),
				NotEmptyRule("text"),
			},
		},
		{
			Name: "Like",
			Properties: []Property{
				{Name: "guid", Kind: KindString},
				{Name: "parent_guid", Kind: KindString},
				{Name: "parent_type", Kind: KindString},
				{Name: "author", Kind: KindString},
				{Name: "positive", Kind: KindBoolean, Default: def(Boolean(true))},
			},
			Rules: []Rule{
				GUIDRule("guid"),
				GUIDRule("parent_guid"),
				OneOfRule("parent_type", "Post", "Comment"),
				DiasporaIDRule("author"),
			},
		},
		{
			Name: "PollParticipation",
			Properties: []Property{
				{Name: "guid", Kind: KindString},
				{Name: "parent_guid", Kind: KindString},
				{Name: "author", Kind: KindString},
				{Name: "poll_answer_guid", Kind: KindString},
			},
			Rules: []Rule{
				GUIDRule("guid"),
				GUIDRule("parent_guid"),
				DiasporaIDRule("author"),
				GUIDRule("poll_answer_guid"),
			},
		},
		{
			Name: "Retraction",
			Properties: []Property{
				{Name: "author", Kind: KindString},
				{Name: "target_guid", Kind: KindString},
				{Name: "target_type", Kind: KindString},
			},
			Rules: []Rule{
				DiasporaIDRule("author"),
				GUIDRule("target_guid"),
				OneOfRule("target_type", "Post", "Comment", "Photo", "Poll", "Like", "Person"),
			},
		},
	}

	for _, s := range schemas {
		if err := r.RegisterType(s); err != nil {
			return err
		}
	}
	return nil
}

// Social returns a fresh registry with every built-in social type registered.
func Social() *Registry {
	r := NewRegistry()
	if err := RegisterSocial(r); err != nil {
		// the built-in table is static, a failure here is a programming error
		panic(err)
	}
	return r
}
