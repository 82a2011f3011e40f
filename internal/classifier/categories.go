package classifier

// Category identifies one of the fixed topical domains.
type Category string

const (
	Health     Category = "health"
	Science    Category = "science"
	Technology Category = "technology"
	AI         Category = "ai"
)

// Default is the category assumed when the caller does not pick one.
const Default = Health

// Definition is the immutable data attached to a category.
type Definition struct {
	ID       Category
	Name     string
	Emoji    string
	Context  string
	Keywords []string
}

// table is iterated in order; ties in classification go to the earlier entry.
var table = []Definition{
	{
		ID:    Health,
		Name:  "Sağlık",
		Emoji: "🏥",
		Context: "Sen bir sağlık asistanısın. SADECE sağlık, beslenme, egzersiz, uyku ve genel sağlık konularında bilgi verebilirsin.\n" +
			"Kesinlikle diğer konularda yanıt VERME. Her zaman \"doktora başvurun\" önerisini ekle.",
		Keywords: []string{
			"sağlık", "hastalık", "tedavi", "doktor", "hastane", "ilaç", "ağrı",
			"semptom", "teşhis", "hasta", "grip", "baş ağrısı", "mide", "bağırsak",
			"beslenme", "egzersiz", "uyku", "stres", "bağışıklık", "diyet", "vitamin",
		},
	},
	{
		ID:    Science,
		Name:  "Bilim",
		Emoji: "🔬",
		Context: "Sen bir bilim danışmanısın. SADECE temel bilimler konularında bilgi verebilirsin.\n" +
			"Tıbbi veya sağlık konularında asla tavsiye verme.",
		Keywords: []string{
			"fizik", "kimya", "biyoloji", "astronomi", "matematik", "bilim", "araştırma",
			"deney", "laboratuvar", "element", "atom", "molekül", "gezegen", "yıldız",
			"formül", "teori", "hipotez", "bilimsel", "araştırma",
		},
	},
	{
		ID:    Technology,
		Name:  "Teknoloji",
		Emoji: "💻",
		Context: "Sen bir teknoloji danışmanısın. SADECE teknoloji konularında bilgi verebilirsin.\n" +
			"Sağlık veya tıbbi konularda kesinlikle tavsiye verme.",
		Keywords: []string{
			"bilgisayar", "yazılım", "donanım", "internet", "mobil", "teknoloji",
			"uygulama", "web", "site", "programlama", "kod", "network", "ağ", "server",
			"veritabanı", "algoritma", "framework", "library", "api", "html", "css", "javascript",
		},
	},
	{
		ID:    AI,
		Name:  "Yapay Zeka",
		Emoji: "🤖",
		Context: "Sen bir yapay zeka uzmanısın. SADECE yapay zeka ve ilgili konularda bilgi verebilirsin.\n" +
			"Sağlık veya tıbbi konularda kesinlikle tavsiye verme.",
		Keywords: []string{
			"yapay zeka", "robot", "makine öğrenmesi", "derin öğrenme", "chatbot",
			"otomasyon", "neural network", "ai", "robotik", "nlp", "görüntü işleme",
			"ses tanıma", "yapay sinir ağları",
		},
	},
}

// All returns the category definitions in classification order.
func All() []Definition {
	out := make([]Definition, len(table))
	copy(out, table)
	return out
}

// Parse resolves a category identifier. An empty string yields Default.
func Parse(s string) (Category, bool) {
	if s == "" {
		return Default, true
	}
	for _, def := range table {
		if string(def.ID) == s {
			return def.ID, true
		}
	}
	return "", false
}

// Lookup returns the definition of c.
func Lookup(c Category) (Definition, bool) {
	for _, def := range table {
		if def.ID == c {
			return def, true
		}
	}
	return Definition{}, false
}
