package domain

var Tables = []interface{}{
	&Category{},
	&Location{},
	&User{},
	&Ad{},
}
