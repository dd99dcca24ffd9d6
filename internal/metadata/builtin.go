package metadata

// BuiltinRegistry returns the registry of built-in CRM modules with their
// system field schemas. System fields are not tenant-editable; their order
// within a form is driven purely by SortOrder and always precedes custom
// fields.
func BuiltinRegistry() *Registry {
	reg := NewRegistry()
	reg.Register(ModuleDef{Name: "leads", Label: "Leads", SystemFields: leadFields()})
	reg.Register(ModuleDef{Name: "contacts", Label: "Contacts", SystemFields: contactFields()})
	reg.Register(ModuleDef{Name: "accounts", Label: "Accounts", SystemFields: accountFields()})
	reg.Register(ModuleDef{Name: "deals", Label: "Deals", SystemFields: dealFields()})
	reg.Register(ModuleDef{Name: "activities", Label: "Activities", SystemFields: activityFields()})
	return reg
}

func leadFields() []FieldDescriptor {
	return []FieldDescriptor{
		{APIName: "firstName", Label: "First Name", FieldType: TypeText, SortOrder: 0},
		{APIName: "lastName", Label: "Last Name", FieldType: TypeText, IsRequired: true, SortOrder: 1},
		{APIName: "company", Label: "Company", FieldType: TypeText, SortOrder: 2},
		{APIName: "email", Label: "Email", FieldType: TypeEmail, SortOrder: 3},
		{APIName: "phone", Label: "Phone", FieldType: TypePhone, SortOrder: 4},
		{APIName: "website", Label: "Website", FieldType: TypeURL, SortOrder: 5},
		{APIName: "source", Label: "Lead Source", FieldType: TypeSelect, SortOrder: 6, Options: []Option{
			{Value: "web", Label: "Web"},
			{Value: "referral", Label: "Referral"},
			{Value: "cold_call", Label: "Cold Call"},
			{Value: "event", Label: "Event"},
			{Value: "other", Label: "Other"},
		}},
		{APIName: "status", Label: "Status", FieldType: TypeSelect, IsRequired: true, SortOrder: 7,
			DefaultValue: "new",
			Options: []Option{
				{Value: "new", Label: "New"},
				{Value: "contacted", Label: "Contacted"},
				{Value: "qualified", Label: "Qualified"},
				{Value: "unqualified", Label: "Unqualified"},
			}},
		{APIName: "owner", Label: "Owner", FieldType: TypeUserLookup, SortOrder: 8,
			ReferenceConfig: &ReferenceConfig{TargetModule: "users", DisplayField: "name"}},
	}
}

func contactFields() []FieldDescriptor {
	return []FieldDescriptor{
		{APIName: "firstName", Label: "First Name", FieldType: TypeText, SortOrder: 0},
		{APIName: "lastName", Label: "Last Name", FieldType: TypeText, IsRequired: true, SortOrder: 1},
		{APIName: "email", Label: "Email", FieldType: TypeEmail, SortOrder: 2},
		{APIName: "phone", Label: "Phone", FieldType: TypePhone, SortOrder: 3},
		{APIName: "account", Label: "Account", FieldType: TypeReference, SortOrder: 4,
			ReferenceConfig: &ReferenceConfig{TargetModule: "accounts", DisplayField: "name"}},
		{APIName: "title", Label: "Job Title", FieldType: TypeText, SortOrder: 5},
		{APIName: "owner", Label: "Owner", FieldType: TypeUserLookup, SortOrder: 6,
			ReferenceConfig: &ReferenceConfig{TargetModule: "users", DisplayField: "name"}},
	}
}

func accountFields() []FieldDescriptor {
	return []FieldDescriptor{
		{APIName: "name", Label: "Account Name", FieldType: TypeText, IsRequired: true, SortOrder: 0},
		{APIName: "industry", Label: "Industry", FieldType: TypeSelect, SortOrder: 1, Options: []Option{
			{Value: "technology", Label: "Technology"},
			{Value: "finance", Label: "Finance"},
			{Value: "healthcare", Label: "Healthcare"},
			{Value: "manufacturing", Label: "Manufacturing"},
			{Value: "retail", Label: "Retail"},
			{Value: "other", Label: "Other"},
		}},
		{APIName: "website", Label: "Website", FieldType: TypeURL, SortOrder: 2},
		{APIName: "phone", Label: "Phone", FieldType: TypePhone, SortOrder: 3},
		{APIName: "annualRevenue", Label: "Annual Revenue", FieldType: TypeCurrency, SortOrder: 4,
			NumberConfig: &NumberConfig{Min: float64Ptr(0)}},
		{APIName: "employees", Label: "Employees", FieldType: TypeNumber, SortOrder: 5,
			NumberConfig: &NumberConfig{Min: float64Ptr(0), Precision: intPtr(0)}},
		{APIName: "owner", Label: "Owner", FieldType: TypeUserLookup, SortOrder: 6,
			ReferenceConfig: &ReferenceConfig{TargetModule: "users", DisplayField: "name"}},
	}
}

func dealFields() []FieldDescriptor {
	return []FieldDescriptor{
		{APIName: "dealNumber", Label: "Deal #", FieldType: TypeAutoNumber, SortOrder: 0},
		{APIName: "name", Label: "Deal Name", FieldType: TypeText, IsRequired: true, SortOrder: 1},
		{APIName: "accountMode", Label: "Account", FieldType: TypeSelect, IsRequired: true, SortOrder: 2,
			DefaultValue: "existing",
			Options: []Option{
				{Value: "existing", Label: "Existing Account"},
				{Value: "create", Label: "New Account"},
			}},
		{APIName: "account", Label: "Existing Account", FieldType: TypeReference, SortOrder: 3,
			ReferenceConfig: &ReferenceConfig{TargetModule: "accounts", DisplayField: "name"},
			Validation: &Validation{ConditionalRequired: []Rule{
				{Field: "accountMode", Operator: OpEqual, Value: "existing"},
			}}},
		{APIName: "accountName", Label: "New Account Name", FieldType: TypeText, SortOrder: 4,
			Validation: &Validation{ConditionalRequired: []Rule{
				{Field: "accountMode", Operator: OpEqual, Value: "create"},
			}}},
		{APIName: "amount", Label: "Amount", FieldType: TypeCurrency, SortOrder: 5,
			NumberConfig: &NumberConfig{Min: float64Ptr(0)}},
		{APIName: "probability", Label: "Probability", FieldType: TypePercent, SortOrder: 6,
			NumberConfig: &NumberConfig{Min: float64Ptr(0), Max: float64Ptr(100)}},
		{APIName: "stage", Label: "Stage", FieldType: TypeSelect, IsRequired: true, SortOrder: 7,
			DefaultValue: "qualification",
			Options: []Option{
				{Value: "qualification", Label: "Qualification"},
				{Value: "proposal", Label: "Proposal"},
				{Value: "negotiation", Label: "Negotiation"},
				{Value: "closed_won", Label: "Closed Won"},
				{Value: "closed_lost", Label: "Closed Lost"},
			}},
		{APIName: "closeDate", Label: "Close Date", FieldType: TypeDate, SortOrder: 8},
		{APIName: "owner", Label: "Owner", FieldType: TypeUserLookup, SortOrder: 9,
			ReferenceConfig: &ReferenceConfig{TargetModule: "users", DisplayField: "name"}},
	}
}

func activityFields() []FieldDescriptor {
	return []FieldDescriptor{
		{APIName: "subject", Label: "Subject", FieldType: TypeText, IsRequired: true, SortOrder: 0},
		{APIName: "type", Label: "Type", FieldType: TypeSelect, IsRequired: true, SortOrder: 1,
			DefaultValue: "task",
			Options: []Option{
				{Value: "call", Label: "Call"},
				{Value: "meeting", Label: "Meeting"},
				{Value: "task", Label: "Task"},
				{Value: "email", Label: "Email"},
			}},
		{APIName: "dueAt", Label: "Due", FieldType: TypeDatetime, SortOrder: 2},
		{APIName: "done", Label: "Completed", FieldType: TypeBoolean, SortOrder: 3, DefaultValue: false},
		{APIName: "relatedTo", Label: "Related To", FieldType: TypeLookup, SortOrder: 4,
			ReferenceConfig: &ReferenceConfig{TargetModule: "deals", DisplayField: "name"}},
		{APIName: "notes", Label: "Notes", FieldType: TypeTextarea, SortOrder: 5},
		{APIName: "owner", Label: "Owner", FieldType: TypeUserLookup, SortOrder: 6,
			ReferenceConfig: &ReferenceConfig{TargetModule: "users", DisplayField: "name"}},
	}
}

func float64Ptr(v float64) *float64 { return &v }
func intPtr(v int) *int             { return &v }
