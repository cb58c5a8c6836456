package srcxml

// srcML XML namespaces, verbatim from constants.py's ns/TAGS tables.
const (
	NSSrc = "http://www.srcML.org/srcML/src"
	NSCpp = "http://www.srcML.org/srcML/cpp"
	NSPos = "http://www.srcML.org/srcML/position"
)

func srcTag(local string) string { return "{" + NSSrc + "}" + local }
func cppTag(local string) string { return "{" + NSCpp + "}" + local }

var (
	TagUnit            = srcTag("unit")
	TagInclude         = cppTag("include")
	TagIncludeFile     = cppTag("file")
	TagOperator        = srcTag("operator")
	TagName            = srcTag("name")
	TagArgumentList    = srcTag("argument_list")
	TagIndex           = srcTag("index")
	TagModifier        = srcTag("modifier")
	TagTypename        = srcTag("typename")
	TagComment         = srcTag("comment")
	TagBlock           = srcTag("block")
	TagPosition        = "{" + NSPos + "}" + "position"
	TagMacro           = srcTag("macro")
	TagConstructor     = srcTag("constructor")
	TagConstructorDecl = srcTag("constructor_decl")
	TagFunction        = srcTag("function")
	TagFunctionDecl    = srcTag("function_decl")
	TagDestructor      = srcTag("destructor")
	TagDestructorDecl  = srcTag("destructor_decl")
	TagClass           = srcTag("class")
	TagClassDecl       = srcTag("class_decl")
	TagStruct          = srcTag("struct")
	TagStructDecl      = srcTag("struct_decl")
	TagEnum            = srcTag("enum")
	TagTypedef         = srcTag("typedef")
	TagUnion           = srcTag("union")
	TagTemplate        = srcTag("template")
	TagDecl            = srcTag("decl")
	TagDeclStmt        = srcTag("decl_stmt")
	TagNamespace       = srcTag("namespace")
	TagCall            = srcTag("call")
	TagType            = srcTag("type")
)
